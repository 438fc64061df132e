package db

import (
	"context"

	"github.com/opst/datahub-operator/pkg/domain"
)

// Interface is the persisted registry of backing-store connections and
// lifecycle flags.
//
// All writes replace whole records. Partial updates are not supported:
// callers read, rebuild the descriptor and put it back.
type Interface interface {
	// Get reads the whole registry content as a single State snapshot.
	Get(ctx context.Context) (domain.State, error)

	// PutDatabase stores the relational database connection descriptor,
	// replacing any previous one.
	PutDatabase(ctx context.Context, conn domain.DatabaseConnection) error

	// PutKafka stores the kafka connection descriptor, replacing any
	// previous one.
	PutKafka(ctx context.Context, conn domain.KafkaConnection) error

	// PutOpensearch stores the opensearch connection descriptor, replacing
	// any previous one.
	PutOpensearch(ctx context.Context, conn domain.OpensearchConnection) error

	// Remove deletes the connection descriptor of the given kind and, in
	// the same transaction, resets the lifecycle flags invalidated by the
	// removal (see domain.FlagsClearedByRemoval).
	//
	// Removing a kind which is not registered is not an error.
	Remove(ctx context.Context, kind domain.ConnectionKind) error

	// SetFlag stores a lifecycle flag.
	//
	// Setting a flag to domain.Unknown removes its record.
	SetFlag(ctx context.Context, name domain.FlagName, flag domain.Flag) error
}
