// Package identity mirrors the identity provider's token subjects as local
// accounts, which every owned record references.
package identity

import (
	"time"

	"github.com/google/uuid"
)

// subjectNamespace seeds the name-based ids of subjects that are not
// themselves uuids.
var subjectNamespace = uuid.MustParse("5d1f1c52-7a0e-4b8e-9a55-2f6f0f4c9e31")

type Account struct {
	ID         uuid.UUID `json:"id"`
	Subject    string    `json:"subject"`
	Email      *string   `json:"email"`
	CreatedAt  time.Time `json:"created_at"`
	LastSeenAt time.Time `json:"last_seen_at"`
}

// AccountID maps a token subject to its account id. The mapping is stable,
// so the same subject always lands on the same account.
func AccountID(subject string) uuid.UUID {
	if id, err := uuid.Parse(subject); err == nil && id != uuid.Nil {
		return id
	}
	return uuid.NewSHA1(subjectNamespace, []byte(subject))
}
