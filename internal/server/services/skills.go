package services

import (
	"context"

	"github.com/dmitrijs2005/dovol/internal/dbx"
	"github.com/dmitrijs2005/dovol/internal/server/models"
	"github.com/dmitrijs2005/dovol/internal/server/repositories/repomanager"
)

// SkillService keeps a volunteer's skill list.
type SkillService struct {
	repos repomanager.RepositoryManager
	tx    dbx.Transactor
}

func NewSkillService(m repomanager.RepositoryManager, tx dbx.Transactor) *SkillService {
	return &SkillService{repos: m, tx: tx}
}

// Add links every named skill to the volunteer, creating unknown skills.
// Already linked skills are left alone.
func (s *SkillService) Add(ctx context.Context, volunteer *models.User, names []string) ([]*models.Skill, error) {
	names = cleanNames(names)
	if len(names) == 0 {
		return nil, validationErr("at least one skill is required")
	}

	var out []*models.Skill
	err := s.tx.WithinTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.link(ctx, tx, volunteer.ID, names); err != nil {
			return err
		}
		var err error
		out, err = s.repos.Skills(tx).ListForUser(ctx, volunteer.ID)
		return err
	})
	if err != nil {
		return nil, wrapErr("add skills", err)
	}
	return out, nil
}

func (s *SkillService) List(ctx context.Context, volunteer *models.User) ([]*models.Skill, error) {
	out, err := s.repos.Skills(s.tx.Conn()).ListForUser(ctx, volunteer.ID)
	return out, wrapErr("list skills", err)
}

// Replace swaps the volunteer's whole skill list in one transaction.
func (s *SkillService) Replace(ctx context.Context, volunteer *models.User, names []string) ([]*models.Skill, error) {
	names = cleanNames(names)

	var out []*models.Skill
	err := s.tx.WithinTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repos.Skills(tx)
		if err := repo.UnlinkAll(ctx, volunteer.ID); err != nil {
			return err
		}
		if err := s.link(ctx, tx, volunteer.ID, names); err != nil {
			return err
		}
		var err error
		out, err = repo.ListForUser(ctx, volunteer.ID)
		return err
	})
	if err != nil {
		return nil, wrapErr("replace skills", err)
	}
	return out, nil
}

// Remove unlinks one skill. An unlinked skill is common.ErrorNotFound.
func (s *SkillService) Remove(ctx context.Context, volunteer *models.User, skillID string) error {
	return wrapErr("remove skill", s.repos.Skills(s.tx.Conn()).Unlink(ctx, volunteer.ID, skillID))
}

func (s *SkillService) link(ctx context.Context, tx dbx.DBTX, userID string, names []string) error {
	repo := s.repos.Skills(tx)
	for _, name := range names {
		sk, err := repo.Ensure(ctx, name)
		if err != nil {
			return err
		}
		if err := repo.Link(ctx, userID, sk.ID); err != nil {
			return err
		}
	}
	return nil
}
