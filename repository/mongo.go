package repository

import (
	"context"
	"errors"
	"fmt"
	"log"
	"reflect"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/x/mongo/driver/topology"

	"intechlab/models"
	"intechlab/workflow"
)

const casesCollection = "jobs"

// Codigos de Mongo para "change streams solo en replica sets".
var changeStreamUnsupported = map[int32]bool{40573: true, 40324: true}

var caseInsensitive = &options.Collation{Locale: "es", Strength: 2}

// MongoCases guarda los casos en la coleccion "jobs".
type MongoCases struct {
	collection   *mongo.Collection
	pollInterval time.Duration
	now          func() time.Time
}

// NewMongoCases acepta una base nula: en ese caso todas las operaciones
// devuelven ErrStoreUnavailable.
func NewMongoCases(db *mongo.Database, pollInterval time.Duration) *MongoCases {
	r := &MongoCases{pollInterval: pollInterval, now: time.Now}
	if db != nil {
		r.collection = db.Collection(casesCollection)
	}
	if r.pollInterval <= 0 {
		r.pollInterval = 5 * time.Second
	}
	return r
}

type caseDocument struct {
	PatientName    string     `bson:"patientName"`
	Treatment      string     `bson:"treatment"`
	Dentist        string     `bson:"dentist"`
	ArrivalDate    *time.Time `bson:"arrivalDate,omitempty"`
	DueDate        time.Time  `bson:"dueDate"`
	AssignedTo     string     `bson:"assignedTo"`
	AssignedToName *string    `bson:"assignedToName"`
	Status         string     `bson:"status"`
	Priority       string     `bson:"priority"`
	Notes          string     `bson:"notes,omitempty"`
	CreatedAt      time.Time  `bson:"createdAt"`
}

// storeErr traduce errores del driver a la taxonomia del portal.
func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	var sse topology.ServerSelectionError
	if mongo.IsNetworkError(err) || mongo.IsTimeout(err) ||
		errors.Is(err, mongo.ErrClientDisconnected) || errors.As(err, &sse) {
		return fmt.Errorf("%s: %w: %v", op, models.ErrStoreUnavailable, err)
	}
	return fmt.Errorf("%s: %v", op, err)
}

func (r *MongoCases) ready(op string) error {
	if r.collection == nil {
		return fmt.Errorf("%s: %w", op, models.ErrStoreUnavailable)
	}
	return nil
}

func idFilter(id string) bson.M {
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		return bson.M{"_id": oid}
	}
	return bson.M{"_id": id}
}

func docID(v interface{}) string {
	switch x := v.(type) {
	case primitive.ObjectID:
		return x.Hex()
	case string:
		return x
	}
	return fmt.Sprint(v)
}

func queryFilter(f Filter) bson.M {
	q := bson.M{}
	if f.AssignedTo != "" {
		q["assignedTo"] = f.AssignedTo
	}
	if len(f.Statuses) > 0 {
		statuses := make([]string, 0, len(f.Statuses))
		for _, s := range f.Statuses {
			statuses = append(statuses, string(s))
		}
		q["status"] = bson.M{"$in": statuses}
	}
	return q
}

// List lee los casos ordenados por fecha de entrega ascendente.
func (r *MongoCases) List(ctx context.Context, filter Filter) ([]models.Case, error) {
	if err := r.ready("list cases"); err != nil {
		return nil, err
	}
	opts := options.Find().SetSort(bson.D{{Key: "dueDate", Value: 1}})
	if filter.AssignedTo != "" {
		opts.SetCollation(caseInsensitive)
	}
	cursor, err := r.collection.Find(ctx, queryFilter(filter), opts)
	if err != nil {
		return nil, storeErr("list cases", err)
	}
	defer cursor.Close(ctx)

	cases := []models.Case{}
	for cursor.Next(ctx) {
		var doc bson.M
		if err := cursor.Decode(&doc); err != nil {
			log.Printf("Documento de caso ilegible, se omite: %v", err)
			continue
		}
		cases = append(cases, DecodeCase(docID(doc["_id"]), doc))
	}
	if err := cursor.Err(); err != nil {
		return nil, storeErr("list cases", err)
	}
	// Fechas guardadas como texto por versiones antiguas no ordenan bien en Mongo.
	workflow.SortCases(cases, workflow.SortByDueDate)
	return cases, nil
}

func (r *MongoCases) Get(ctx context.Context, id string) (models.Case, error) {
	if err := r.ready("get case"); err != nil {
		return models.Case{}, err
	}
	var doc bson.M
	if err := r.collection.FindOne(ctx, idFilter(id)).Decode(&doc); err != nil {
		return models.Case{}, storeErr("get case "+id, err)
	}
	return DecodeCase(docID(doc["_id"]), doc), nil
}

// Create valida la entrada, fija el estado pendiente y devuelve el id generado.
func (r *MongoCases) Create(ctx context.Context, input models.NewCaseInput) (string, error) {
	nc, err := models.ValidateNewCase(input)
	if err != nil {
		return "", err
	}
	if err := r.ready("create case"); err != nil {
		return "", err
	}

	doc := caseDocument{
		PatientName: nc.PatientName,
		Treatment:   nc.Treatment,
		Dentist:     nc.Dentist,
		DueDate:     nc.DueDate,
		AssignedTo:  nc.AssignedTo,
		Status:      string(models.StatusPending),
		Priority:    string(nc.Priority),
		Notes:       nc.Notes,
		CreatedAt:   r.now().UTC(),
	}
	if !nc.ArrivalDate.IsZero() {
		doc.ArrivalDate = &nc.ArrivalDate
	}
	if nc.AssignedToName != "" {
		doc.AssignedToName = &nc.AssignedToName
	}

	res, err := r.collection.InsertOne(ctx, doc)
	if err != nil {
		return "", storeErr("create case", err)
	}
	id := docID(res.InsertedID)
	log.Printf("Caso %s creado para %s", id, nc.AssignedTo)
	return id, nil
}

// UpdateStatus fusiona la evidencia con el cambio de estado. No valida la transicion.
func (r *MongoCases) UpdateStatus(ctx context.Context, id string, status models.Status, extra models.CaseUpdate) error {
	if err := r.ready("update status"); err != nil {
		return err
	}
	set := bson.M{"status": string(status), "updatedAt": r.now().UTC()}
	if extra.CompletionEvidence != nil {
		set["completionEvidence"] = extra.CompletionEvidence
	}
	if extra.DeliveryEvidence != nil {
		set["deliveryEvidence"] = extra.DeliveryEvidence
	}
	return r.update(ctx, "update status "+id, id, set)
}

// UpdateAssignment sobrescribe solo los campos de asignacion.
func (r *MongoCases) UpdateAssignment(ctx context.Context, id, assignedTo, assignedToName string) error {
	if err := r.ready("update assignment"); err != nil {
		return err
	}
	var name interface{}
	if assignedToName != "" {
		name = assignedToName
	}
	return r.update(ctx, "update assignment "+id, id, bson.M{"assignedTo": assignedTo, "assignedToName": name})
}

func (r *MongoCases) update(ctx context.Context, op, id string, set bson.M) error {
	res, err := r.collection.UpdateOne(ctx, idFilter(id), bson.M{"$set": set})
	if err != nil {
		return storeErr(op, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	return nil
}

// Subscribe envia una foto inicial y otra por cada evento del change stream.
// En un servidor sin replica set cae a sondeo periodico.
func (r *MongoCases) Subscribe(ctx context.Context, filter Filter) (*Subscription, error) {
	if err := r.ready("subscribe cases"); err != nil {
		return nil, err
	}
	return startSubscription(ctx, func(ctx context.Context, emit emitFunc) error {
		return r.watch(ctx, filter, emit)
	}), nil
}

func (r *MongoCases) watch(ctx context.Context, filter Filter, emit emitFunc) error {
	last, err := r.List(ctx, filter)
	if err != nil {
		return err
	}
	if !emit(last) {
		return ctx.Err()
	}

	stream, err := r.collection.Watch(ctx, mongo.Pipeline{})
	if err != nil {
		var cmdErr mongo.CommandError
		if errors.As(err, &cmdErr) && changeStreamUnsupported[cmdErr.Code] {
			log.Printf("Change streams no disponibles, sondeando cada %s", r.pollInterval)
			return r.poll(ctx, filter, last, emit)
		}
		return storeErr("watch cases", err)
	}
	defer stream.Close(context.Background())

	for stream.Next(ctx) {
		cases, err := r.List(ctx, filter)
		if err != nil {
			return err
		}
		if !emit(cases) {
			return ctx.Err()
		}
	}
	if err := stream.Err(); err != nil && ctx.Err() == nil {
		return storeErr("watch cases", err)
	}
	return ctx.Err()
}

func (r *MongoCases) poll(ctx context.Context, filter Filter, last []models.Case, emit emitFunc) error {
	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		cases, err := r.List(ctx, filter)
		if err != nil {
			return err
		}
		if reflect.DeepEqual(cases, last) {
			continue
		}
		last = cases
		if !emit(cases) {
			return ctx.Err()
		}
	}
}
