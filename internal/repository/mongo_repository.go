package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Koyo-os/form-builder/internal/entity"
	"github.com/Koyo-os/form-builder/pkg/logger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

const formCollection = "forms"

// MongoRepository stores one document per form with questions and responses embedded
type MongoRepository struct {
	client *mongo.Client
	forms  *mongo.Collection
	logger *logger.Logger
}

// ConnectMongo dials the server and verifies it with a ping
func ConnectMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}

	if err = client.Ping(ctx, readpref.Primary()); err != nil {
		client.Disconnect(ctx)
		return nil, err
	}

	return client, nil
}

func NewMongo(client *mongo.Client, database string, logger *logger.Logger) *MongoRepository {
	return &MongoRepository{
		client: client,
		forms:  client.Database(database).Collection(formCollection),
		logger: logger,
	}
}

func (repo *MongoRepository) Create(ctx context.Context, form *entity.Form) error {
	if form.Responses == nil {
		form.Responses = []entity.Response{}
	}

	if _, err := repo.forms.InsertOne(ctx, form); err != nil {
		repo.logger.Error("error insert form",
			zap.String("form_id", form.ID),
			zap.Error(err))
		return err
	}

	return nil
}

func (repo *MongoRepository) Get(ctx context.Context, id string) (*entity.Form, error) {
	var form entity.Form

	err := repo.forms.FindOne(ctx, bson.M{"_id": id}).Decode(&form)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, entity.ErrFormNotFound
		}

		repo.logger.Error("error find form",
			zap.String("form_id", id),
			zap.Error(err))
		return nil, err
	}

	return &form, nil
}

func (repo *MongoRepository) List(ctx context.Context) ([]entity.Form, error) {
	cursor, err := repo.forms.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "updatedAt", Value: 1}}))
	if err != nil {
		repo.logger.Error("error list forms", zap.Error(err))
		return nil, err
	}

	forms := []entity.Form{}
	if err = cursor.All(ctx, &forms); err != nil {
		repo.logger.Error("error decode forms", zap.Error(err))
		return nil, err
	}

	return forms, nil
}

// Save replaces the whole document, inserting it when missing
func (repo *MongoRepository) Save(ctx context.Context, form *entity.Form) error {
	if form.Responses == nil {
		form.Responses = []entity.Response{}
	}
	if form.UpdatedAt.IsZero() {
		form.UpdatedAt = time.Now().UTC()
	}

	_, err := repo.forms.ReplaceOne(ctx,
		bson.M{"_id": form.ID},
		form,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		repo.logger.Error("error replace form",
			zap.String("form_id", form.ID),
			zap.Error(err))
		return err
	}

	return nil
}

func (repo *MongoRepository) DeleteForm(ctx context.Context, id string) error {
	res, err := repo.forms.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		repo.logger.Error("error delete form",
			zap.String("form_id", id),
			zap.Error(err))
		return err
	}

	if res.DeletedCount == 0 {
		return entity.ErrFormNotFound
	}

	return nil
}

func (repo *MongoRepository) AppendResponse(ctx context.Context, formID string, response *entity.Response) error {
	response.FormID = formID

	res, err := repo.forms.UpdateOne(ctx,
		bson.M{"_id": formID},
		bson.M{"$push": bson.M{"responses": response}},
	)
	if err != nil {
		repo.logger.Error("error push response",
			zap.String("form_id", formID),
			zap.String("response_id", response.ID),
			zap.Error(err))
		return err
	}

	if res.MatchedCount == 0 {
		return entity.ErrFormNotFound
	}

	return nil
}

func (repo *MongoRepository) GetResponse(ctx context.Context, formID, responseID string) (*entity.Response, error) {
	form, err := repo.Get(ctx, formID)
	if err != nil {
		return nil, err
	}

	r, ok := form.Response(responseID)
	if !ok {
		return nil, entity.ErrResponseNotFound
	}

	return r, nil
}

func (repo *MongoRepository) IsHealthy() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	return repo.client.Ping(ctx, readpref.Primary()) == nil
}

func (repo *MongoRepository) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return repo.client.Disconnect(ctx)
}
