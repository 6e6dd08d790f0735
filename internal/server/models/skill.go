package models

type Skill struct {
	ID   string
	Name string
}
