package main

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"

	infraeventbus "github.com/barncase/barn/infra/eventbus"
	"github.com/barncase/barn/infra/memory"
	"github.com/barncase/barn/pkg/app"
	"github.com/barncase/barn/pkg/domain/user"
	"github.com/barncase/barn/pkg/money"
	"github.com/barncase/barn/pkg/repository"
	pkgtestutils "github.com/barncase/barn/pkg/testutils"
	"github.com/barncase/barn/webapi/testutils"
	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	color.NoColor = true
}

// memEnv serves every command from one shared in-memory store.
func memEnv(uow *memory.UoW) env {
	return env{
		loadApp: func(string) (*app.App, error) {
			logger := pkgtestutils.Logger()
			return app.New(&app.Deps{
				Uow:      uow,
				EventBus: infraeventbus.NewWithMemory(logger),
				Logger:   logger,
			}, testutils.TestConfig()), nil
		},
		openDB: func(string) (*sql.DB, error) {
			return nil, errors.New("migrate requires DATABASE_URL")
		},
	}
}

func execute(t *testing.T, e env, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(e)
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestTick(t *testing.T) {
	uow := pkgtestutils.NewUoW()
	owner := pkgtestutils.SeedUser(t, uow, "farmer", user.RoleUser, money.Zero)
	pkgtestutils.SeedFarm(t, uow, owner, "One")
	pkgtestutils.SeedFarm(t, uow, owner, "Two")

	out, err := execute(t, memEnv(uow), "tick")
	require.NoError(t, err)
	assert.Contains(t, out, "farms=2")
	assert.Contains(t, out, "failed=0")

	out, err = execute(t, memEnv(uow), "tick", "--json")
	require.NoError(t, err)
	var res struct {
		Farms int `json:"farms"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, 2, res.Farms)
}

func TestReconcile(t *testing.T) {
	uow := pkgtestutils.NewUoW()
	u := pkgtestutils.SeedUser(t, uow, "alice", user.RoleUser, money.MustParse("30"))

	out, err := execute(t, memEnv(uow), "reconcile")
	require.NoError(t, err)
	assert.Contains(t, out, "no drift")

	ctx := context.Background()
	require.NoError(t, uow.Do(ctx, func(uow repository.UnitOfWork) error {
		users, err := uow.UserRepository()
		if err != nil {
			return err
		}
		stored, err := users.Get(ctx, u.ID)
		if err != nil {
			return err
		}
		stored.Balance = money.MustParse("99")
		return users.Update(ctx, stored)
	}))

	out, err = execute(t, memEnv(uow), "reconcile")
	require.NoError(t, err)
	assert.Contains(t, out, "1 drifted")
	assert.Contains(t, out, "alice")
	assert.Contains(t, out, "false")

	out, err = execute(t, memEnv(uow), "reconcile", "--repair")
	require.NoError(t, err)
	assert.Contains(t, out, "true")

	out, err = execute(t, memEnv(uow), "reconcile")
	require.NoError(t, err)
	assert.Contains(t, out, "no drift")
}

func TestCreateAdmin(t *testing.T) {
	uow := pkgtestutils.NewUoW()

	out, err := execute(t, memEnv(uow), "create-admin", "--name", "boss", "--password", "secret123")
	require.NoError(t, err)
	assert.Contains(t, out, "admin boss created")

	users, err := uow.UserRepository()
	require.NoError(t, err)
	u, err := users.GetByName(context.Background(), "boss")
	require.NoError(t, err)
	assert.Equal(t, user.RoleAdmin, u.Role)

	_, err = execute(t, memEnv(uow), "create-admin", "--name", "boss")
	assert.Error(t, err)
}

func TestMigrate_NeedsDatabase(t *testing.T) {
	out, err := execute(t, memEnv(pkgtestutils.NewUoW()), "migrate", "up")
	require.Error(t, err)
	assert.Contains(t, out, "cannot open database")
}
