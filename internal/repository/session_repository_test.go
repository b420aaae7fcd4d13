package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/suite"

	"github.com/ddfinv/portal/internal/entity"
	"github.com/ddfinv/portal/internal/repository"
)

type SessionRepositoryTestSuite struct {
	suite.Suite
	repo *repository.SessionRepository
}

func (ts *SessionRepositoryTestSuite) SetupTest() {
	ts.repo = repository.NewSessionRepository(repository.SetupTestDatabase(ts.T()))
}

func TestSessionRepositoryTestSuite(t *testing.T) { //nolint:paralleltest
	suite.Run(t, new(SessionRepositoryTestSuite))
}

func (ts *SessionRepositoryTestSuite) sid() string {
	return uuid.Must(uuid.NewV4()).String()
}

func (ts *SessionRepositoryTestSuite) TestSetAndGet() {
	ctx := context.Background()
	sid := ts.sid()

	err := ts.repo.Set(ctx, map[string]string{
		"session:" + sid + ":token": "raw-token",
		"session:" + sid + ":user":  `{"id":1}`,
	})
	ts.Require().NoError(err)

	token, err := ts.repo.Get(ctx, "session:"+sid+":token")
	ts.Require().NoError(err)
	ts.Require().Equal("raw-token", token)

	user, err := ts.repo.Get(ctx, "session:"+sid+":user")
	ts.Require().NoError(err)
	ts.Require().Equal(`{"id":1}`, user)
}

func (ts *SessionRepositoryTestSuite) TestSetOverwrites() {
	ctx := context.Background()
	sid := ts.sid()
	key := "session:" + sid + ":token"

	ts.Require().NoError(ts.repo.Set(ctx, map[string]string{key: "first"}))
	ts.Require().NoError(ts.repo.Set(ctx, map[string]string{key: "second"}))

	value, err := ts.repo.Get(ctx, key)
	ts.Require().NoError(err)
	ts.Require().Equal("second", value)
}

func (ts *SessionRepositoryTestSuite) TestGetMissing() {
	_, err := ts.repo.Get(context.Background(), "session:missing:token")
	ts.Require().ErrorIs(err, entity.ErrNotFound)
}

func (ts *SessionRepositoryTestSuite) TestDelete() {
	ctx := context.Background()
	sid := ts.sid()
	tokenKey := "session:" + sid + ":token"
	userKey := "session:" + sid + ":user"

	ts.Require().NoError(ts.repo.Set(ctx, map[string]string{tokenKey: "t", userKey: "u"}))
	ts.Require().NoError(ts.repo.Delete(ctx, tokenKey, userKey))

	_, err := ts.repo.Get(ctx, tokenKey)
	ts.Require().ErrorIs(err, entity.ErrNotFound)

	_, err = ts.repo.Get(ctx, userKey)
	ts.Require().ErrorIs(err, entity.ErrNotFound)
}

func (ts *SessionRepositoryTestSuite) TestDeleteMissingIsNoop() {
	ts.Require().NoError(ts.repo.Delete(context.Background(), "session:never:token"))
}

func (ts *SessionRepositoryTestSuite) TestDeleteStale() {
	ctx := context.Background()
	sid := ts.sid()
	key := "session:" + sid + ":token"

	ts.Require().NoError(ts.repo.Set(ctx, map[string]string{key: "t"}))

	// Fresh entries survive.
	ts.Require().NoError(ts.repo.DeleteStale(ctx, time.Hour))

	_, err := ts.repo.Get(ctx, key)
	ts.Require().NoError(err)

	// Everything is stale against a zero age.
	ts.Require().NoError(ts.repo.DeleteStale(ctx, 0))

	_, err = ts.repo.Get(ctx, key)
	ts.Require().ErrorIs(err, entity.ErrNotFound)
}
