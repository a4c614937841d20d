package repository

import (
	"context"
	"fmt"
	"log"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"intechlab/models"
)

// MongoStaff guarda los perfiles en las colecciones "technicians" y "dentist".
type MongoStaff struct {
	db *mongo.Database
}

func NewMongoStaff(db *mongo.Database) *MongoStaff {
	return &MongoStaff{db: db}
}

func (s *MongoStaff) collection(op string, kind models.StaffKind) (*mongo.Collection, error) {
	if s.db == nil {
		return nil, fmt.Errorf("%s: %w", op, models.ErrStoreUnavailable)
	}
	return s.db.Collection(string(kind)), nil
}

// Put crea o reemplaza el perfil con el uid de la cuenta como _id.
func (s *MongoStaff) Put(ctx context.Context, kind models.StaffKind, member models.StaffMember) error {
	coll, err := s.collection("put "+string(kind), kind)
	if err != nil {
		return err
	}
	_, err = coll.ReplaceOne(ctx, bson.M{"_id": member.ID}, member, options.Replace().SetUpsert(true))
	if err != nil {
		return storeErr("put "+string(kind)+" "+member.ID, err)
	}
	log.Printf("Perfil %s guardado en %s", member.ID, kind)
	return nil
}

func (s *MongoStaff) Get(ctx context.Context, kind models.StaffKind, id string) (models.StaffMember, error) {
	coll, err := s.collection("get "+string(kind), kind)
	if err != nil {
		return models.StaffMember{}, err
	}
	var member models.StaffMember
	if err := coll.FindOne(ctx, bson.M{"_id": id}).Decode(&member); err != nil {
		return models.StaffMember{}, storeErr("get "+string(kind)+" "+id, err)
	}
	return member, nil
}

// Delete no falla si el perfil ya no existe.
func (s *MongoStaff) Delete(ctx context.Context, kind models.StaffKind, id string) error {
	coll, err := s.collection("delete "+string(kind), kind)
	if err != nil {
		return err
	}
	res, err := coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return storeErr("delete "+string(kind)+" "+id, err)
	}
	if res.DeletedCount == 0 {
		log.Printf("Perfil %s no existia en %s", id, kind)
	}
	return nil
}

// List devuelve los perfiles ordenados por nombre.
func (s *MongoStaff) List(ctx context.Context, kind models.StaffKind) ([]models.StaffMember, error) {
	coll, err := s.collection("list "+string(kind), kind)
	if err != nil {
		return nil, err
	}
	cursor, err := coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, storeErr("list "+string(kind), err)
	}
	members := []models.StaffMember{}
	if err := cursor.All(ctx, &members); err != nil {
		return nil, storeErr("list "+string(kind), err)
	}
	return members, nil
}
