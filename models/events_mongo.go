package models

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoEventRepo struct {
	col *mongo.Collection
}

func NewMongoEventRepository(col *mongo.Collection) EventRepository {
	return &mongoEventRepo{col: col}
}

func opCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 5*time.Second)
}

func (r *mongoEventRepo) Create(e *Event) error {
	ctx, cancel := opCtx()
	defer cancel()
	_, err := r.col.InsertOne(ctx, e)
	return err
}

func (r *mongoEventRepo) GetByID(id string) (Event, error) {
	ctx, cancel := opCtx()
	defer cancel()

	var e Event
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&e); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Event{}, ErrNotFound
		}
		return Event{}, err
	}
	return e, nil
}

// UpdateDetails sets the editable detail fields one by one; details.status
// is deliberately absent from the $set. Only the status sweep may complete
// an event, and an edit racing that sweep must not resurrect it by writing
// back a status it read earlier.
func (r *mongoEventRepo) UpdateDetails(id string, d EventDetails) error {
	ctx, cancel := opCtx()
	defer cancel()

	res, err := r.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"details.title":       d.Title,
		"details.description": d.Description,
		"details.date":        d.Date,
		"details.time":        d.Time,
		"details.location":    d.Location,
		"details.capacity":    d.Capacity,
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *mongoEventRepo) Delete(id string) error {
	ctx, cancel := opCtx()
	defer cancel()

	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *mongoEventRepo) List(page, limit int) ([]Event, int64, error) {
	return r.paged(bson.M{}, page, limit)
}

func (r *mongoEventRepo) ListByOrganizer(email string, page, limit int) ([]Event, int64, error) {
	return r.paged(bson.M{"organizer.email": email}, page, limit)
}

func (r *mongoEventRepo) ListByAttendee(email string, page, limit int) ([]Event, int64, error) {
	filter := bson.M{"attendees": bson.M{"$elemMatch": bson.M{"buyer.email": email}}}
	return r.paged(filter, page, limit)
}

func (r *mongoEventRepo) paged(filter bson.M, page, limit int) ([]Event, int64, error) {
	ctx, cancel := opCtx()
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit))

	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)

	out := []Event{}
	for cur.Next(ctx) {
		var e Event
		if err := cur.Decode(&e); err != nil {
			return nil, 0, err
		}
		out = append(out, e)
	}
	if err := cur.Err(); err != nil {
		return nil, 0, err
	}

	total, err := r.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// ReserveSeat pushes the attendee with a single conditional update: the
// filter only matches while the event is pending, the buyer is neither the
// organizer nor already an attendee, and a seat is free. Concurrent calls
// therefore cannot oversell the event or double-book a buyer; there is no
// read-then-write gap. A failed update is re-read once to classify the
// rejection in precondition order.
func (r *mongoEventRepo) ReserveSeat(id string, buyer PersonDets, tier Tier) error {
	ctx, cancel := opCtx()
	defer cancel()

	filter := bson.M{
		"_id":                   id,
		"details.status":        StatusPending,
		"organizer.email":       bson.M{"$ne": buyer.Email},
		"attendees.buyer.email": bson.M{"$ne": buyer.Email},
		"$expr": bson.M{"$lt": bson.A{
			bson.M{"$size": "$attendees"},
			"$details.capacity",
		}},
	}
	update := bson.M{"$push": bson.M{"attendees": Attendee{Buyer: buyer, Tier: tier}}}

	res, err := r.col.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.ModifiedCount == 1 {
		return nil
	}

	e, err := r.GetByID(id)
	if err != nil {
		return err // ErrNotFound or datastore failure
	}
	switch {
	case e.Details.Status != StatusPending:
		return ErrEventClosed
	case e.Organizer.Email == buyer.Email:
		return ErrSelfPurchase
	case hasAttendee(e, buyer.Email):
		return ErrAlreadyPurchased
	default:
		return ErrSoldOut
	}
}

func hasAttendee(e Event, email string) bool {
	for _, a := range e.Attendees {
		if a.Buyer.Email == email {
			return true
		}
	}
	return false
}

func (r *mongoEventRepo) CompleteDue(today string) (int64, error) {
	ctx, cancel := opCtx()
	defer cancel()

	res, err := r.col.UpdateMany(ctx,
		bson.M{"details.status": StatusPending, "details.date": bson.M{"$lte": today}},
		bson.M{"$set": bson.M{"details.status": StatusCompleted}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

func (r *mongoEventRepo) PendingOn(date string) ([]Event, error) {
	ctx, cancel := opCtx()
	defer cancel()

	cur, err := r.col.Find(ctx, bson.M{"details.status": StatusPending, "details.date": date})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []Event
	for cur.Next(ctx) {
		var e Event
		if err := cur.Decode(&e); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, cur.Err()
}
