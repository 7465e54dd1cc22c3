package models

import "time"

// Event status values. Events start out pending and are flipped to completed
// by the scheduled status sweep, never by a user action.
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
)

// Tier is the ticket class. There is no price or inventory distinction
// between tiers beyond the label on the attendee entry.
type Tier string

const (
	TierGeneral Tier = "general"
	TierVIP     Tier = "vip"
)

type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"-"` // bcrypt hash
}

// SessionToken is an opaque credential bound to one user at issuance. A token
// stays valid until the daily sweep removes it; lookups never check its age.
type SessionToken struct {
	Token     string    `json:"token"`
	CreatedAt time.Time `json:"createdAt"`
}

// PersonDets is a denormalized username/email snapshot. It is copied into
// event documents at write time and never re-resolved, so renaming a user
// does not rewrite historical events.
type PersonDets struct {
	Username string `bson:"username" json:"username"`
	Email    string `bson:"email" json:"email"`
}

type EventDetails struct {
	Title       string `bson:"title" json:"title"`
	Description string `bson:"description" json:"description"`
	Date        string `bson:"date" json:"date"` // YYYY-MM-DD
	Time        string `bson:"time" json:"time"`
	Location    string `bson:"location" json:"location"`
	Capacity    int    `bson:"capacity" json:"capacity"`
	Status      string `bson:"status" json:"status"`
}

type Attendee struct {
	Buyer PersonDets `bson:"buyer" json:"buyer"`
	Tier  Tier       `bson:"tier" json:"tier"`
}

type Event struct {
	ID        string       `bson:"_id" json:"id"`
	Organizer PersonDets   `bson:"organizer" json:"organizer"`
	Details   EventDetails `bson:"details" json:"details"`
	Attendees []Attendee   `bson:"attendees" json:"attendees"`
	CreatedAt time.Time    `bson:"createdAt" json:"createdAt"`
}

// UserRepository is the credential store: user identities plus their live
// session tokens. Token append and sweep are read-modify-write sequences on
// the same user record; implementations must serialize them per user (the
// SQL implementation gets this from single-statement writes).
type UserRepository interface {
	// Create persists a new user, hashing the plain-text password. Returns
	// ErrUsernameTaken or ErrEmailTaken on conflict.
	Create(u *User) error
	// ValidateCredentials looks the user up by email and compares the
	// password against the stored hash. Returns ErrInvalidCredentials when
	// the email is unknown or the password does not match.
	ValidateCredentials(email, plain string) (User, error)
	// AddToken records a freshly issued token for the user.
	AddToken(userID int64, t SessionToken) error
	// FindByToken resolves a token to its owner. Returns ErrUnauthorized if
	// no user holds the token. This is a pure read: expiry is enforced by
	// SweepTokens, not here.
	FindByToken(token string) (User, error)
	// SweepTokens removes every token issued before cutoff and reports how
	// many distinct users lost at least one token. Idempotent.
	SweepTokens(cutoff time.Time) (int, error)
}

// EventRepository is the event store plus the reservation engine.
//
// ReserveSeat is the one operation with a hard atomicity contract: the
// status/self-purchase/duplicate/capacity checks and the attendee append must
// act as a single atomic unit per event, so that two concurrent purchases can
// never both take the last seat or both pass the duplicate check. The Mongo
// implementation uses a conditional update for this; an in-process lock keyed
// by event id is an acceptable substitute only for single-process deployments.
type EventRepository interface {
	Create(e *Event) error
	GetByID(id string) (Event, error)
	// UpdateDetails replaces the details block wholesale, except status:
	// the Status field of d is ignored, so an edit can never move an event
	// in or out of completed, even when it races the status sweep.
	// Ownership is the caller's responsibility.
	UpdateDetails(id string, d EventDetails) error
	Delete(id string) error

	// Listings are ordered by creation time descending. The second return
	// value is the total count of the filtered set, for totalPages.
	List(page, limit int) ([]Event, int64, error)
	ListByOrganizer(email string, page, limit int) ([]Event, int64, error)
	ListByAttendee(email string, page, limit int) ([]Event, int64, error)

	// ReserveSeat atomically appends buyer to the event's attendee list.
	// Rejections, in precondition order: ErrNotFound, ErrEventClosed,
	// ErrSelfPurchase, ErrAlreadyPurchased, ErrSoldOut.
	ReserveSeat(id string, buyer PersonDets, tier Tier) error

	// CompleteDue flips every pending event whose date is on or before the
	// given day (YYYY-MM-DD) to completed and returns how many changed.
	// Idempotent: completed events never match again.
	CompleteDue(today string) (int64, error)
	// PendingOn returns the pending events happening exactly on the given
	// day, for reminder dispatch.
	PendingOn(date string) ([]Event, error)
}
