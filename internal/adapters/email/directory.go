package email

import (
	"context"
	"fmt"
	"strings"

	"ticketinventory/internal/domain"
)

// StaticDirectory resolves contacts from a fixed map. Accounts live in the identity
// provider; this stands in for its lookup API in development and tests.
type StaticDirectory map[string]domain.Contact

// ParseStaticDirectory reads entries of the form "userID=email" or "userID=Name <email>"
// separated by commas.
func ParseStaticDirectory(spec string) (StaticDirectory, error) {
	dir := StaticDirectory{}
	for _, entry := range strings.Split(spec, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		userID, rest, ok := strings.Cut(entry, "=")
		userID, rest = strings.TrimSpace(userID), strings.TrimSpace(rest)
		if !ok || userID == "" || rest == "" {
			return nil, fmt.Errorf("invalid directory entry %q", entry)
		}
		contact := domain.Contact{UserID: userID, Email: rest}
		if name, addr, found := strings.Cut(rest, "<"); found {
			contact.Name = strings.TrimSpace(name)
			contact.Email = strings.TrimSpace(strings.TrimSuffix(addr, ">"))
		}
		dir[userID] = contact
	}
	return dir, nil
}

func (d StaticDirectory) ContactFor(_ context.Context, userID string) (*domain.Contact, error) {
	c, ok := d[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &c, nil
}
