package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	patienterrors "intake/internal/patients/errors"
	"intake/pkg/config"
	"intake/pkg/cpf"
	mongotx "intake/pkg/db/mongo"
	"intake/pkg/model"
	"intake/pkg/sanitizer"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "Patients"

	maxSearchResults = 100
)

type mongoPatientRepository struct {
	cfg        *config.Config
	db         *mongo.Database
	collection *mongo.Collection
	txManager  mongotx.TransactionManager
}

type PatientRepository interface {
	Create(ctx context.Context, p *model.Patient) error
	FindByID(ctx context.Context, id string) (*model.Patient, error)
	FindByCPF(ctx context.Context, cpf string) (*model.Patient, error)
	FindAll(ctx context.Context, limit int, offset int64) ([]*model.Patient, error)
	Search(ctx context.Context, query string, limit int) ([]*model.Patient, error)
	Count(ctx context.Context) (int64, error)
	Update(ctx context.Context, id string, p *model.Patient) (*mongo.UpdateResult, error)
	FillAddress(ctx context.Context, id string, pa *model.PostalAddress) (bool, error)
	Delete(ctx context.Context, id string) error
	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

func NewMongoPatientRepository(cfg *config.Config) PatientRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoPatientRepository{
		cfg:        cfg,
		db:         db,
		collection: db.Collection(CollectionName),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

// withTimeout bounds ctx by timeout unless ctx is a SessionContext, which
// cannot be wrapped without leaving the transaction. An earlier parent
// deadline still wins.
func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

func (r *mongoPatientRepository) Create(ctx context.Context, p *model.Patient) error {
	ctx, cancel := withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	p.CreatedAt = now
	p.UpdatedAt = now
	result, err := r.collection.InsertOne(ctx, p)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %s", patienterrors.ErrDuplicateCPF, cpf.Mask(p.CPF))
		}
		return fmt.Errorf("failed to create patient: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		p.ID = oid.Hex()
	}
	return nil
}

func (r *mongoPatientRepository) FindByID(ctx context.Context, id string) (*model.Patient, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", patienterrors.ErrInvalidID, id)
	}

	var p model.Patient
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&p)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", patienterrors.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to find patient: %w", err)
	}

	return &p, nil
}

func (r *mongoPatientRepository) FindByCPF(ctx context.Context, raw string) (*model.Patient, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var p model.Patient
	err := r.collection.FindOne(ctx, bson.M{"cpf": cpf.Digits(raw)}).Decode(&p)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: cpf %s", patienterrors.ErrNotFound, cpf.Mask(raw))
		}
		return nil, fmt.Errorf("failed to find patient by cpf: %w", err)
	}

	return &p, nil
}

func (r *mongoPatientRepository) FindAll(ctx context.Context, limit int, offset int64) ([]*model.Patient, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetLimit(int64(limit)).
		SetSkip(offset).
		SetSort(bson.D{{Key: "name", Value: 1}, {Key: "_id", Value: 1}})

	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query patients: %w", err)
	}
	defer cursor.Close(ctx)

	patients := []*model.Patient{}
	if err = cursor.All(ctx, &patients); err != nil {
		return nil, fmt.Errorf("failed to decode patients: %w", err)
	}
	return patients, nil
}

// escapeRegexSpecialChars escapes regex metacharacters so user input is matched literally.
func escapeRegexSpecialChars(s string) string {
	specialChars := regexp.MustCompile(`[.*+?^$()[\]{}|\\]`)
	return specialChars.ReplaceAllStringFunc(s, func(match string) string {
		return "\\" + match
	})
}

// searchFilter matches an exact CPF when query is one. Otherwise it matches a
// prefix of the accent-folded name key or of the social name.
func searchFilter(query string) bson.M {
	if isCPFQuery(query) {
		return bson.M{"cpf": cpf.Digits(query)}
	}

	key := bson.M{"$regex": "^" + escapeRegexSpecialChars(sanitizer.NormalizeNameForComparison(query))}
	social := bson.M{"$regex": "^" + escapeRegexSpecialChars(query), "$options": "i"}
	return bson.M{"$or": bson.A{
		bson.M{"name_key": key},
		bson.M{"social_name": social},
	}}
}

func isCPFQuery(query string) bool {
	for _, r := range query {
		if (r < '0' || r > '9') && r != '.' && r != '-' && r != ' ' {
			return false
		}
	}
	return len(cpf.Digits(query)) == cpf.Length
}

func (r *mongoPatientRepository) Search(ctx context.Context, query string, limit int) ([]*model.Patient, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	if limit <= 0 || limit > maxSearchResults {
		limit = maxSearchResults
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "name", Value: 1}}).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, searchFilter(query), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to search patients: %w", err)
	}
	defer cursor.Close(ctx)

	patients := []*model.Patient{}
	if err = cursor.All(ctx, &patients); err != nil {
		return nil, fmt.Errorf("failed to decode search results: %w", err)
	}

	return patients, nil
}

func (r *mongoPatientRepository) Count(ctx context.Context) (int64, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("failed to count patients: %w", err)
	}
	return count, nil
}

// Update replaces the stored document. Fields left empty in p are cleared, so
// callers pass the fully merged record.
func (r *mongoPatientRepository) Update(ctx context.Context, id string, p *model.Patient) (*mongo.UpdateResult, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", patienterrors.ErrInvalidID, id)
	}

	doc := *p
	doc.ID = ""
	doc.UpdatedAt = time.Now().UTC().Truncate(time.Millisecond)

	result, err := r.collection.ReplaceOne(ctx, bson.M{"_id": objectID}, &doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, fmt.Errorf("%w: %s", patienterrors.ErrDuplicateCPF, cpf.Mask(p.CPF))
		}
		return nil, fmt.Errorf("failed to update patient: %w", err)
	}

	if result.MatchedCount == 0 {
		return nil, fmt.Errorf("%w: %s", patienterrors.ErrNotFound, id)
	}

	p.UpdatedAt = doc.UpdatedAt
	return result, nil
}

// FillAddress writes the resolved postal fields into the patient's address
// without overwriting anything already typed in. The update is a single
// pipeline so a concurrent edit is never clobbered. It reports whether any
// field was written.
func (r *mongoPatientRepository) FillAddress(ctx context.Context, id string, pa *model.PostalAddress) (bool, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return false, fmt.Errorf("%w: %s", patienterrors.ErrInvalidID, id)
	}

	set, anyEmpty := fillStage(pa)
	if len(set) == 0 {
		return false, nil
	}
	set["updated_at"] = time.Now().UTC().Truncate(time.Millisecond)

	filter := bson.M{"_id": objectID, "$or": anyEmpty}
	result, err := r.collection.UpdateOne(ctx, filter, mongo.Pipeline{{{Key: "$set", Value: set}}})
	if err != nil {
		return false, fmt.Errorf("failed to fill patient address: %w", err)
	}
	if result.MatchedCount > 0 {
		return result.ModifiedCount > 0, nil
	}

	n, err := r.collection.CountDocuments(ctx, bson.M{"_id": objectID})
	if err != nil {
		return false, fmt.Errorf("failed to check patient: %w", err)
	}
	if n == 0 {
		return false, fmt.Errorf("%w: %s", patienterrors.ErrNotFound, id)
	}
	return false, nil
}

// fillStage builds the conditional $set stage and the filter clauses that
// select documents with at least one empty target field.
func fillStage(pa *model.PostalAddress) (bson.M, bson.A) {
	set := bson.M{}
	anyEmpty := bson.A{}
	if pa == nil {
		return set, anyEmpty
	}

	values := []struct{ field, value string }{
		{"cep", pa.CEP},
		{"street", pa.Street},
		{"complement", pa.Complement},
		{"neighborhood", pa.Neighborhood},
		{"city", pa.City},
		{"state", pa.State},
	}
	for _, v := range values {
		if v.value == "" {
			continue
		}
		path := "address." + v.field
		current := "$" + path
		set[path] = bson.M{"$cond": bson.A{
			bson.M{"$eq": bson.A{bson.M{"$ifNull": bson.A{current, ""}}, ""}},
			bson.M{"$literal": v.value},
			current,
		}}
		anyEmpty = append(anyEmpty, bson.M{path: bson.M{"$in": bson.A{"", nil}}})
	}
	return set, anyEmpty
}

func (r *mongoPatientRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", patienterrors.ErrInvalidID, id)
	}

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": objectID})
	if err != nil {
		return fmt.Errorf("failed to delete patient: %w", err)
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("%w: %s", patienterrors.ErrNotFound, id)
	}
	return nil
}

func (r *mongoPatientRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}
