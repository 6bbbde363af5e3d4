package repository

import "context"

// Collection names used by the engine stores.
const (
	CollectionOrders                 = "orders"
	CollectionMemberships            = "memberships"
	CollectionCorporateSubscriptions = "corporate_subscriptions"
	CollectionCorporateMembers       = "corporate_members"
)

// PersistenceBackend stores one serialized document per collection.
//
// Load returns (nil, nil) when the collection has never been saved. Save
// overwrites the whole document and must be durable when it returns: a
// subsequent Load observes exactly the bytes written.
//
// Implementations wrap transport failures with domain.ErrPersistenceFailure
// so the stores can apply their retry policy.
type PersistenceBackend interface {
	Name() string
	Load(ctx context.Context, collection string) ([]byte, error)
	Save(ctx context.Context, collection string, doc []byte) error
}
