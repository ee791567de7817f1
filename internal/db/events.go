package marketplace

import (
	"context"
	"fmt"
	"os"
	"time"

	model "github.com/glkeru/loyalty/marketplace/internal/models"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type EventsDB struct {
	mgo  *mongo.Client
	coll *mongo.Collection
}

func NewEventsDB() (*EventsDB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	mng := os.Getenv("MARKETPLACE_MONGO")
	if mng == "" {
		return nil, fmt.Errorf("env MARKETPLACE_MONGO is not set")
	}

	options := options.Client().ApplyURI("mongodb://" + mng)
	client, err := mongo.Connect(ctx, options)
	if err != nil {
		return nil, err
	}
	err = client.Ping(ctx, nil)
	if err != nil {
		return nil, err
	}
	db := client.Database("marketplaceDB")
	coll := db.Collection("mysteryevents")

	return &EventsDB{client, coll}, nil
}

func (e *EventsDB) EventCreate(ctx context.Context, event model.MysteryBoxEvent) (uuid.UUID, error) {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	event.Status = model.EventScheduled
	_, err := e.coll.InsertOne(ctx, event)
	if err != nil {
		return uuid.Nil, err
	}
	return event.ID, nil
}

func (e *EventsDB) EventGet(ctx context.Context, eventID uuid.UUID) (model.MysteryBoxEvent, error) {
	var event model.MysteryBoxEvent
	filter := bson.M{"id": eventID}
	err := e.coll.FindOne(ctx, filter).Decode(&event)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return event, fmt.Errorf("event %s: %w", eventID, model.ErrNotFound)
		}
		return event, err
	}
	return event, nil
}

// События, которым пора выполняться
func (e *EventsDB) EventsDue(ctx context.Context, now time.Time) ([]model.MysteryBoxEvent, error) {
	var events []model.MysteryBoxEvent
	filter := bson.M{"status": model.EventScheduled, "scheduledat": bson.M{"$lte": now}}
	result, err := e.coll.Find(ctx, filter)
	if err != nil {
		return nil, err
	}

	for result.Next(ctx) {
		var event model.MysteryBoxEvent
		err := result.Decode(&event)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, nil
}

// Захват события: scheduled -> running, второй воркер событие не возьмет
func (e *EventsDB) EventMarkRunning(ctx context.Context, eventID uuid.UUID) error {
	filter := bson.M{"id": eventID, "status": model.EventScheduled}
	update := bson.M{"$set": bson.M{"status": model.EventRunning}}
	result, err := e.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if result.ModifiedCount == 0 {
		return fmt.Errorf("event %s: %w", eventID, model.ErrInvalidTransition)
	}
	return nil
}

func (e *EventsDB) EventComplete(ctx context.Context, eventID uuid.UUID, winners []model.EventWinner, eligible int) error {
	filter := bson.M{"id": eventID, "status": model.EventRunning}
	update := bson.M{"$set": bson.M{
		"status":        model.EventCompleted,
		"executedat":    time.Now(),
		"winners":       winners,
		"eligiblecount": eligible,
	}}
	result, err := e.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if result.ModifiedCount == 0 {
		return fmt.Errorf("event %s: %w", eventID, model.ErrInvalidTransition)
	}
	return nil
}

func (e *EventsDB) EventFail(ctx context.Context, eventID uuid.UUID, message string) error {
	filter := bson.M{"id": eventID}
	update := bson.M{"$set": bson.M{
		"status":     model.EventFailed,
		"executedat": time.Now(),
		"error":      message,
	}}
	_, err := e.coll.UpdateOne(ctx, filter, update)
	return err
}
