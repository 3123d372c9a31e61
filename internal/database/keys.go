package database

import "fmt"

// PartitionKey identifies one row of a per-user collection. It is stored as two
// columns, never as a concatenated string, so usernames may contain any character.
type PartitionKey struct {
	UserID   string
	EntityID string
}

func (k PartitionKey) String() string {
	return fmt.Sprintf("(%q, %q)", k.UserID, k.EntityID)
}

// ItemKey builds the key for a (user, catalog item) row
func ItemKey(userID string, wordID int64) PartitionKey {
	return PartitionKey{UserID: userID, EntityID: fmt.Sprintf("%d", wordID)}
}

// DayKey builds the key for a (user, calendar day) row
func DayKey(userID, day string) PartitionKey {
	return PartitionKey{UserID: userID, EntityID: day}
}

// checkPartition panics if a row owned by got was returned for want
func (s *Store) checkPartition(collection, want, got string) {
	if want == got {
		return
	}
	v := PartitionViolation{Collection: collection, Want: want, Got: got}
	s.log.Error("partition violation", "collection", collection, "want", want, "got", got)
	panic(v)
}
