package mongorepos

import (
	"context"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/trezcool/kusoma/core"
	"github.com/trezcool/kusoma/core/user"
	"github.com/trezcool/kusoma/storage/database"
)

// Connector hands out the database; *database.Manager implements it.
type Connector interface {
	Database(ctx context.Context) (*mongo.Database, error)
}

// userDoc is the stored shape of a user.
type userDoc struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"`
	Name       string             `bson:"name"`
	Email      string             `bson:"email"`
	Password   string             `bson:"password"`
	Standard   string             `bson:"standard,omitempty"`
	WeakTopics []string           `bson:"weaktopics"`
	Result     interface{}        `bson:"result,omitempty"`
	CreatedAt  time.Time          `bson:"createdAt"`
	UpdatedAt  time.Time          `bson:"updatedAt"`
}

type userRepository struct {
	conn    Connector
	nowFunc func() time.Time
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(conn Connector) *userRepository {
	return &userRepository{conn: conn, nowFunc: time.Now}
}

func (repo *userRepository) collection(ctx context.Context) (*mongo.Collection, error) {
	db, err := repo.conn.Database(ctx)
	if err != nil {
		var connErr *core.ConnectionError
		if errors.As(err, &connErr) {
			return nil, connErr
		}
		return nil, &core.ConnectionError{Reason: database.Classify(err), Err: err}
	}
	return db.Collection(database.UsersCollection), nil
}

func (repo *userRepository) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	coll, err := repo.collection(ctx)
	if err != nil {
		return user.User{}, err
	}

	var doc userDoc
	if err = coll.FindOne(ctx, bson.M{"email": email}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, &core.QueryError{Op: "find user by email", Err: err}
	}
	return unmarshalUser(doc), nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	coll, err := repo.collection(ctx)
	if err != nil {
		return user.User{}, err
	}

	doc := marshalUser(usr)
	doc.ID = primitive.NewObjectID()
	if _, err = coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return user.User{}, user.ErrEmailExists
		}
		return user.User{}, &core.QueryError{Op: "insert user", Err: err}
	}
	return unmarshalUser(doc), nil
}

func (repo *userRepository) UpdatePassword(ctx context.Context, email string, hash []byte) error {
	return repo.update(ctx, "update password", email, bson.M{"$set": bson.M{"password": string(hash)}})
}

func (repo *userRepository) SetWeakTopics(ctx context.Context, email string, topics []string) error {
	if topics == nil {
		topics = []string{}
	}
	return repo.update(ctx, "set weak topics", email, bson.M{"$set": bson.M{"weaktopics": topics}})
}

func (repo *userRepository) AppendResult(ctx context.Context, email string, entry user.ResultEntry) error {
	return repo.update(ctx, "append result", email, appendUpdate(entry))
}

// appendUpdate builds the update adding one result in the stored shape.
func appendUpdate(entry user.ResultEntry) bson.M {
	switch {
	case entry.Kind == user.ResultMapping:
		return bson.M{"$set": bson.M{"result." + strconv.Itoa(entry.Key): entry.Marks}}
	case entry.Bare:
		return bson.M{"$push": bson.M{"result": entry.Marks}}
	default:
		return bson.M{"$push": bson.M{"result": bson.M{"score": entry.Marks}}}
	}
}

func (repo *userRepository) update(ctx context.Context, op, email string, upd bson.M) error {
	coll, err := repo.collection(ctx)
	if err != nil {
		return err
	}

	set, _ := upd["$set"].(bson.M)
	if set == nil {
		set = bson.M{}
		upd["$set"] = set
	}
	set["updatedAt"] = repo.nowFunc().UTC()

	res, err := coll.UpdateOne(ctx, bson.M{"email": email}, upd)
	if err != nil {
		return &core.QueryError{Op: op, Err: err}
	}
	if res.MatchedCount == 0 {
		return user.ErrNotFound
	}
	return nil
}

func marshalUser(usr user.User) userDoc {
	topics := usr.WeakTopics
	if topics == nil {
		topics = []string{}
	}
	doc := userDoc{
		Name:       usr.Name,
		Email:      usr.Email,
		Password:   string(usr.PasswordHash),
		Standard:   usr.Standard,
		WeakTopics: topics,
		CreatedAt:  usr.CreatedAt.UTC(),
		UpdatedAt:  usr.UpdatedAt.UTC(),
	}
	if usr.Result.Kind != user.NoResults {
		doc.Result = usr.Result.Raw
	}
	if oid, err := primitive.ObjectIDFromHex(usr.ID); err == nil {
		doc.ID = oid
	}
	return doc
}

func unmarshalUser(doc userDoc) user.User {
	usr := user.User{
		Name:       doc.Name,
		Email:      doc.Email,
		Standard:   doc.Standard,
		WeakTopics: doc.WeakTopics,
		Result:     decodeResults(doc.Result),
		CreatedAt:  doc.CreatedAt,
		UpdatedAt:  doc.UpdatedAt,
	}
	if !doc.ID.IsZero() {
		usr.ID = doc.ID.Hex()
	}
	if doc.Password != "" {
		usr.PasswordHash = []byte(doc.Password)
	}
	if usr.WeakTopics == nil {
		usr.WeakTopics = []string{}
	}
	return usr
}
