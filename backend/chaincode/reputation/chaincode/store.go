package chaincode

import (
	"encoding/json"
	"fmt"

	"github.com/trustup-app/trustup/backend/pkg/ledgerapi"
	"github.com/trustup-app/trustup/backend/pkg/safemath"
)

const (
	// DefaultScore is assigned implicitly on the first read of an unknown user.
	DefaultScore uint32 = 50
	// MaxScore is the upper bound of the score range.
	MaxScore uint32 = 100
)

// State keys.
const (
	adminKey      = "admin"
	updaterPrefix = "updater_"
	scorePrefix   = "score_"
)

// Event names.
const (
	ScoreChangeEvent = "ScoreChangeEvent"
	RoleChangeEvent  = "RoleChangeEvent"
)

type scoreRecord struct {
	Score uint32 `json:"score"`
}

type updaterRecord struct {
	Allowed bool `json:"allowed"`
}

// ScoreChange is the payload of every ScoreChangeEvent. Old and New carry the
// clamped values, so an event where Old == New records a no-op caused by
// boundary clamping, which is distinct from no event at all.
type ScoreChange struct {
	User   string `json:"user"`
	Old    uint32 `json:"old"`
	New    uint32 `json:"new"`
	Reason string `json:"reason"`
}

// RoleChange is the payload of RoleChangeEvent for admin and updater changes.
type RoleChange struct {
	Role    string `json:"role"` // "admin" or "updater"
	Subject string `json:"subject"`
	Allowed bool   `json:"allowed"`
}

// Store owns the bounded per-user reputation scores. Scores live in [0,100],
// default to 50 on first read, and are mutated only by addresses holding the
// updater role.
type Store struct {
	state  ledgerapi.State
	events ledgerapi.EventSink
}

func NewStore(state ledgerapi.State, events ledgerapi.EventSink) *Store {
	return &Store{state: state, events: events}
}

// Initialize sets the contract admin. It can only be called once.
func (s *Store) Initialize(admin string) error {
	existing, err := s.state.Get(adminKey)
	if err != nil {
		return fmt.Errorf("failed to read admin: %w", err)
	}
	if existing != nil {
		return ErrAlreadyInitialized
	}
	if err := s.state.Put(adminKey, []byte(admin)); err != nil {
		return fmt.Errorf("failed to store admin: %w", err)
	}
	return s.emitRoleChange("admin", admin, true)
}

// GetAdmin returns the current admin address.
func (s *Store) GetAdmin() (string, error) {
	raw, err := s.state.Get(adminKey)
	if err != nil {
		return "", fmt.Errorf("failed to read admin: %w", err)
	}
	if raw == nil {
		return "", ErrNotInitialized
	}
	return string(raw), nil
}

// SetAdmin transfers the admin role. The old admin loses rights in the same
// operation the new admin gains them.
func (s *Store) SetAdmin(caller, newAdmin string) error {
	if err := s.requireAdmin(caller); err != nil {
		return err
	}
	if err := s.state.Put(adminKey, []byte(newAdmin)); err != nil {
		return fmt.Errorf("failed to store admin: %w", err)
	}
	return s.emitRoleChange("admin", newAdmin, true)
}

// SetUpdater grants or revokes the updater role for an address.
func (s *Store) SetUpdater(caller, updater string, allowed bool) error {
	if err := s.requireAdmin(caller); err != nil {
		return err
	}
	raw, err := json.Marshal(updaterRecord{Allowed: allowed})
	if err != nil {
		return err
	}
	if err := s.state.Put(updaterPrefix+updater, raw); err != nil {
		return fmt.Errorf("failed to store updater: %w", err)
	}
	return s.emitRoleChange("updater", updater, allowed)
}

// IsUpdater reports whether the address holds the updater role.
func (s *Store) IsUpdater(addr string) (bool, error) {
	raw, err := s.state.Get(updaterPrefix + addr)
	if err != nil {
		return false, fmt.Errorf("failed to read updater: %w", err)
	}
	if raw == nil {
		return false, nil
	}
	var rec updaterRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return false, err
	}
	return rec.Allowed, nil
}

// GetScore returns the user's score, or DefaultScore if the user has never
// been scored. It never fails on unknown users and requires no authorization.
func (s *Store) GetScore(user string) (uint32, error) {
	raw, err := s.state.Get(scorePrefix + user)
	if err != nil {
		return 0, fmt.Errorf("failed to read score: %w", err)
	}
	if raw == nil {
		return DefaultScore, nil
	}
	var rec scoreRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return 0, err
	}
	return rec.Score, nil
}

// IncreaseScore raises the user's score by amount, clamped to MaxScore.
// A sum that would overflow the integer width fails instead of wrapping.
// Zero deltas and clamped no-ops still emit a ScoreChangeEvent so auditors
// can tell "clamped" apart from "never ran".
func (s *Store) IncreaseScore(caller, user string, amount uint32, reason string) error {
	if err := s.requireUpdater(caller); err != nil {
		return err
	}
	current, err := s.GetScore(user)
	if err != nil {
		return err
	}
	sum, err := safemath.AddU32(current, amount)
	if err != nil {
		return fmt.Errorf("score increase for %s: %w", user, err)
	}
	next := sum
	if next > MaxScore {
		next = MaxScore
	}
	return s.writeScore(user, current, next, reason)
}

// DecreaseScore lowers the user's score by amount, clamped at zero. Clamping
// rather than failing keeps default-score users penalizable without a
// pre-check race.
func (s *Store) DecreaseScore(caller, user string, amount uint32, reason string) error {
	if err := s.requireUpdater(caller); err != nil {
		return err
	}
	current, err := s.GetScore(user)
	if err != nil {
		return err
	}
	next := uint32(0)
	if amount < current {
		next = current - amount
	}
	return s.writeScore(user, current, next, reason)
}

func (s *Store) writeScore(user string, old, next uint32, reason string) error {
	raw, err := json.Marshal(scoreRecord{Score: next})
	if err != nil {
		return err
	}
	if err := s.state.Put(scorePrefix+user, raw); err != nil {
		return fmt.Errorf("failed to store score: %w", err)
	}
	payload, err := json.Marshal(ScoreChange{User: user, Old: old, New: next, Reason: reason})
	if err != nil {
		return err
	}
	return s.events.Emit(ScoreChangeEvent, payload)
}

func (s *Store) requireAdmin(caller string) error {
	admin, err := s.GetAdmin()
	if err != nil {
		return err
	}
	if caller != admin {
		return fmt.Errorf("%w: %s is not the admin", ErrUnauthorized, caller)
	}
	return nil
}

func (s *Store) requireUpdater(caller string) error {
	ok, err := s.IsUpdater(caller)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s does not hold the updater role", ErrUnauthorized, caller)
	}
	return nil
}

func (s *Store) emitRoleChange(role, subject string, allowed bool) error {
	payload, err := json.Marshal(RoleChange{Role: role, Subject: subject, Allowed: allowed})
	if err != nil {
		return err
	}
	return s.events.Emit(RoleChangeEvent, payload)
}
