// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package mockapi

import (
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/taibuivan/storeconsole/internal/platform/apperr"
	"github.com/taibuivan/storeconsole/internal/platform/sec"
)

// account is a backend user with its password hash.
type account struct {
	ID           int
	Email        string
	FirstName    string
	LastName     string
	Address      string
	Phone        string
	Role         sec.UserRole
	PasswordHash string
}

// userView is the public JSON shape of an account.
type userView struct {
	ID        string       `json:"id"`
	Email     string       `json:"email"`
	FirstName string       `json:"firstName"`
	LastName  string       `json:"lastName"`
	Address   string       `json:"address,omitempty"`
	Phone     string       `json:"phone,omitempty"`
	Role      sec.UserRole `json:"role"`
}

func (a account) view() userView {
	return userView{
		ID:        strconv.Itoa(a.ID),
		Email:     a.Email,
		FirstName: a.FirstName,
		LastName:  a.LastName,
		Address:   a.Address,
		Phone:     a.Phone,
		Role:      a.Role,
	}
}

// accountStore indexes accounts by id and case-insensitive email.
type accountStore struct {
	mu      sync.RWMutex
	nextID  int
	byID    map[int]account
	byEmail map[string]int
}

func newAccountStore() *accountStore {
	return &accountStore{byID: make(map[int]account), byEmail: make(map[string]int)}
}

func emailKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (store *accountStore) create(candidate account) (account, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	key := emailKey(candidate.Email)
	if _, taken := store.byEmail[key]; taken {
		return account{}, apperr.Conflict("Email is already registered")
	}

	store.nextID++
	candidate.ID = store.nextID
	store.byID[candidate.ID] = candidate
	store.byEmail[key] = candidate.ID
	return candidate, nil
}

func (store *accountStore) findByEmail(email string) (account, bool) {
	store.mu.RLock()
	defer store.mu.RUnlock()

	id, ok := store.byEmail[emailKey(email)]
	if !ok {
		return account{}, false
	}
	return store.byID[id], true
}

func (store *accountStore) find(id int) (account, bool) {
	store.mu.RLock()
	defer store.mu.RUnlock()

	found, ok := store.byID[id]
	return found, ok
}

// update applies mutate to the account under the write lock.
func (store *accountStore) update(id int, mutate func(*account) error) (account, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	current, ok := store.byID[id]
	if !ok {
		return account{}, apperr.NotFound("User")
	}

	oldKey := emailKey(current.Email)
	if err := mutate(&current); err != nil {
		return account{}, err
	}

	newKey := emailKey(current.Email)
	if newKey != oldKey {
		if _, taken := store.byEmail[newKey]; taken {
			return account{}, apperr.Conflict("Email is already registered")
		}
		delete(store.byEmail, oldKey)
		store.byEmail[newKey] = id
	}

	store.byID[id] = current
	return current, nil
}

func (store *accountStore) remove(id int) bool {
	store.mu.Lock()
	defer store.mu.Unlock()

	found, ok := store.byID[id]
	if !ok {
		return false
	}
	delete(store.byID, id)
	delete(store.byEmail, emailKey(found.Email))
	return true
}

func (store *accountStore) list() []userView {
	store.mu.RLock()
	defer store.mu.RUnlock()

	views := make([]userView, 0, len(store.byID))
	for _, found := range store.byID {
		views = append(views, found.view())
	}
	sort.Slice(views, func(i, j int) bool {
		left, _ := strconv.Atoi(views[i].ID)
		right, _ := strconv.Atoi(views[j].ID)
		return left < right
	})
	return views
}

func (store *accountStore) count() int {
	store.mu.RLock()
	defer store.mu.RUnlock()
	return len(store.byID)
}
