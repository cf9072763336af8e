package domain

import (
	"context"
	"errors"

	flagdomain "github.com/smallbiznis/beacon/internal/flag/domain"
	groupdomain "github.com/smallbiznis/beacon/internal/group/domain"
	ruledomain "github.com/smallbiznis/beacon/internal/rule/domain"
)

// RuleTypeKillSwitch marks results short-circuited by a disabled flag. It is
// not a stored rule type; the kill switch lives on the flag record and
// dominates all rules.
const RuleTypeKillSwitch = "kill_switch"

// Context describes the subject of an evaluation. It is transient,
// caller-supplied input; the engine never fetches attributes itself.
type Context struct {
	UserID         string
	UserAttributes map[string]any
}

// ResolveUserID returns the stable identifier used for bucketing: the
// explicit user id, falling back to the "id" attribute.
func (c Context) ResolveUserID() string {
	if c.UserID != "" {
		return c.UserID
	}
	if c.UserAttributes == nil {
		return ""
	}
	return stringifyID(c.UserAttributes["id"])
}

// Result is the JSON-serializable outcome of one evaluation.
type Result struct {
	FlagName string  `json:"flag_name"`
	Enabled  bool    `json:"enabled"`
	Variant  *string `json:"variant"`
	RuleType *string `json:"rule_type"`
	RuleID   *string `json:"rule_id"`
}

// Snapshot is the immutable per-flag state an evaluation reads: the flag
// record plus its rules in ascending creation order.
type Snapshot struct {
	Flag  flagdomain.Flag
	Rules []ruledomain.Rule
}

// SnapshotSource serves the evaluation read path. Implementations must be
// safe for concurrent use and should answer from memory.
type SnapshotSource interface {
	FlagSnapshot(ctx context.Context, name string) (*Snapshot, error)
	Group(ctx context.Context, name string) (*groupdomain.Group, error)
}

type Service interface {
	Evaluate(ctx context.Context, flagName string, evalCtx Context) (*Result, error)
}

// ErrFlagNotFound is the one error the engine surfaces to callers; every
// other internally-recoverable condition defaults to a disabled result.
var ErrFlagNotFound = errors.New("flag_not_found")
