package services

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/dovol/internal/common"
	"github.com/dmitrijs2005/dovol/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTasks_CreateListGet(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	ngo := e.seedUser(t, "ngo@example.com", models.RoleNGO)

	_, err := e.tasks.Create(ctx, ngo, TaskInput{Title: " ", Description: "D"})
	require.ErrorIs(t, err, common.ErrorValidation)

	task, err := e.tasks.Create(ctx, ngo, TaskInput{
		Title:          " Park cleanup ",
		Description:    "Saturday morning",
		SkillsRequired: []string{"lifting", " ", "lifting", "first aid"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Park cleanup", task.Title)
	assert.Equal(t, []string{"lifting", "first aid"}, task.SkillsRequired)
	assert.Equal(t, ngo.ID, task.PostedByID)
	assert.True(t, task.IsActive)

	e.clock.Advance(time.Minute)
	other, err := e.tasks.Create(ctx, ngo, TaskInput{Title: "Library", Description: "Shelving"})
	require.NoError(t, err)
	require.NoError(t, e.tasks.Delete(ctx, ngo, other.ID))

	list, err := e.tasks.List(ctx, "", 0, 0)
	require.NoError(t, err)
	require.Len(t, list, 1, "inactive tasks are hidden")
	assert.Equal(t, task.ID, list[0].ID)

	list, err = e.tasks.List(ctx, "LIBRARY", 0, 0)
	require.NoError(t, err)
	assert.Empty(t, list)

	got, err := e.tasks.Get(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, task.Title, got.Title)

	_, err = e.tasks.Get(ctx, "missing")
	require.ErrorIs(t, err, common.ErrorNotFound)
}

func TestTasks_Ownership(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	owner := e.seedUser(t, "owner@example.com", models.RoleNGO)
	rival := e.seedUser(t, "rival@example.com", models.RoleNGO)
	vol := e.seedUser(t, "v@example.com", models.RoleVolunteer)
	admin := e.seedUser(t, "admin@example.com", models.RoleAdmin)

	task, err := e.tasks.Create(ctx, owner, TaskInput{Title: "T", Description: "D"})
	require.NoError(t, err)
	in := TaskInput{Title: "T2", Description: "D2", Location: "Tallinn"}

	_, err = e.tasks.Update(ctx, rival, task.ID, in)
	require.ErrorIs(t, err, common.ErrorForbidden)
	_, err = e.tasks.Update(ctx, vol, task.ID, in)
	require.ErrorIs(t, err, common.ErrorForbidden)
	require.ErrorIs(t, e.tasks.Delete(ctx, rival, task.ID), common.ErrorForbidden)

	got, err := e.tasks.Update(ctx, owner, task.ID, in)
	require.NoError(t, err)
	assert.Equal(t, "Tallinn", got.Location)

	got, err = e.tasks.Update(ctx, admin, task.ID, TaskInput{Title: "T3", Description: "D3"})
	require.NoError(t, err)
	assert.Equal(t, "T3", got.Title)

	require.NoError(t, e.tasks.Delete(ctx, admin, task.ID))
	_, err = e.tasks.Update(ctx, owner, "missing", in)
	require.ErrorIs(t, err, common.ErrorNotFound)
}

func TestCleanNames(t *testing.T) {
	t.Parallel()
	assert.Equal(t, []string{"a", "b"}, cleanNames([]string{" a", "b", "", "a "}))
	assert.Empty(t, cleanNames(nil))
}
