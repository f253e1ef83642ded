package mongorepos

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/trezcool/kusoma/core"
	"github.com/trezcool/kusoma/core/user"
)

const usersNS = "kusoma.users"

type fakeConnector struct {
	db  *mongo.Database
	err error
}

func (c fakeConnector) Database(context.Context) (*mongo.Database, error) {
	return c.db, c.err
}

func newRepo(mt *mtest.T) *userRepository {
	return NewUserRepository(fakeConnector{db: mt.DB})
}

func TestUserRepository_GetUserByEmail(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	oid := primitive.NewObjectID()

	mt.Run("found", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, usersNS, mtest.FirstBatch, bson.D{
			{Key: "_id", Value: oid},
			{Key: "name", Value: "Amani"},
			{Key: "email", Value: "amani@test.cd"},
			{Key: "password", Value: "$2a$10$hash"},
			{Key: "weaktopics", Value: bson.A{"fractions"}},
			{Key: "result", Value: bson.D{{Key: "1", Value: 85}, {Key: "0", Value: bson.D{{Key: "score", Value: 70}}}}},
		}))

		usr, err := newRepo(mt).GetUserByEmail(context.Background(), "amani@test.cd")
		require.NoError(mt, err)
		assert.Equal(mt, oid.Hex(), usr.ID)
		assert.Equal(mt, "Amani", usr.Name)
		assert.Equal(mt, []byte("$2a$10$hash"), usr.PasswordHash)
		assert.Equal(mt, []string{"fractions"}, usr.WeakTopics)
		assert.Equal(mt, user.ResultMapping, usr.Result.Kind)
		assert.Equal(mt, []user.PerformancePoint{{QuizNumber: 1, Marks: 70}, {QuizNumber: 2, Marks: 85}}, usr.Result.Performance())
	})

	mt.Run("without optional fields", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, usersNS, mtest.FirstBatch, bson.D{
			{Key: "_id", Value: oid},
			{Key: "name", Value: "Baraka"},
			{Key: "email", Value: "baraka@gmail.com"},
		}))

		usr, err := newRepo(mt).GetUserByEmail(context.Background(), "baraka@gmail.com")
		require.NoError(mt, err)
		assert.Equal(mt, []string{}, usr.WeakTopics)
		assert.Equal(mt, user.NoResults, usr.Result.Kind)
		assert.Nil(mt, usr.PasswordHash)
	})

	mt.Run("not found", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, usersNS, mtest.FirstBatch))

		_, err := newRepo(mt).GetUserByEmail(context.Background(), "nobody@test.cd")
		assert.Equal(mt, user.ErrNotFound, err)
	})

	mt.Run("query failure", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 2, Name: "BadValue", Message: "bad query"}))

		_, err := newRepo(mt).GetUserByEmail(context.Background(), "amani@test.cd")
		var qryErr *core.QueryError
		require.True(mt, errors.As(err, &qryErr), "got %v", err)
		assert.Equal(mt, "find user by email", qryErr.Op)
	})
}

func TestUserRepository_connectionFailure(t *testing.T) {
	ctx := context.Background()

	connErr := &core.ConnectionError{Reason: core.ConnAuthFailed, Err: errors.New("auth error")}
	_, err := NewUserRepository(fakeConnector{err: connErr}).GetUserByEmail(ctx, "amani@test.cd")
	assert.Same(t, connErr, err)

	err = NewUserRepository(fakeConnector{err: errors.New("connection refused")}).SetWeakTopics(ctx, "amani@test.cd", nil)
	var got *core.ConnectionError
	require.True(t, errors.As(err, &got))
	assert.Equal(t, core.ConnRefused, got.Reason)
}

func TestUserRepository_CreateUser(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	newUser := user.User{Name: "Amani", Email: "amani@test.cd", PasswordHash: []byte("hash")}

	mt.Run("created", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		usr, err := newRepo(mt).CreateUser(context.Background(), newUser)
		require.NoError(mt, err)
		assert.True(mt, primitive.IsValidObjectID(usr.ID))
		assert.Equal(mt, []string{}, usr.WeakTopics)
	})

	mt.Run("duplicate email", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{Index: 0, Code: 11000, Message: "duplicate key error"}))

		_, err := newRepo(mt).CreateUser(context.Background(), newUser)
		assert.Equal(mt, user.ErrEmailExists, err)
	})
}

func TestUserRepository_update(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("matched", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}))

		err := newRepo(mt).AppendResult(context.Background(), "amani@test.cd", user.ResultEntry{Kind: user.ResultSequence, Key: 2, Marks: 90})
		assert.NoError(mt, err)
	})

	mt.Run("no such user", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}))

		err := newRepo(mt).UpdatePassword(context.Background(), "nobody@test.cd", []byte("hash"))
		assert.Equal(mt, user.ErrNotFound, err)
	})

	mt.Run("failure", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 2, Name: "BadValue", Message: "bad update"}))

		err := newRepo(mt).SetWeakTopics(context.Background(), "amani@test.cd", []string{"algebra"})
		var qryErr *core.QueryError
		require.True(mt, errors.As(err, &qryErr), "got %v", err)
		assert.Equal(mt, "set weak topics", qryErr.Op)
	})
}

func Test_appendUpdate(t *testing.T) {
	tests := []struct {
		name  string
		entry user.ResultEntry
		want  bson.M
	}{
		{
			name:  "score document",
			entry: user.ResultEntry{Kind: user.ResultSequence, Key: 2, Marks: 90},
			want:  bson.M{"$push": bson.M{"result": bson.M{"score": 90.0}}},
		},
		{
			name:  "bare number",
			entry: user.ResultEntry{Kind: user.ResultSequence, Key: 2, Marks: 90, Bare: true},
			want:  bson.M{"$push": bson.M{"result": 90.0}},
		},
		{
			name:  "mapping",
			entry: user.ResultEntry{Kind: user.ResultMapping, Key: 5, Marks: 90},
			want:  bson.M{"$set": bson.M{"result.5": 90.0}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, appendUpdate(tt.entry))
		})
	}
}
