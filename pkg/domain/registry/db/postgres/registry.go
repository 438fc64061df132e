package postgres

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"
	kpool "github.com/opst/datahub-operator/pkg/conn/db/postgres/pool"
	"github.com/opst/datahub-operator/pkg/conn/db/postgres/scanner"
	"github.com/opst/datahub-operator/pkg/domain"
	regdb "github.com/opst/datahub-operator/pkg/domain/registry/db"
	xe "github.com/opst/datahub-operator/pkg/errors"
)

type pgRegistry struct {
	pool kpool.Pool
}

func New(pool kpool.Pool) regdb.Interface {
	return &pgRegistry{pool: pool}
}

// Ensure creates the registry tables when they do not exist yet.
//
// Concurrent callers can race on creation; the losing side receives
// "duplicate table" from postgres, which is not an error here.
func Ensure(ctx context.Context, pool kpool.Pool) error {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return xe.Wrap(err)
	}
	defer conn.Release()

	for _, query := range []string{
		`
		create table if not exists "connection" (
			"kind" text not null primary key,
			"payload" jsonb not null
		)
		`,
		`
		create table if not exists "flag" (
			"name" text not null primary key,
			"status" text not null
		)
		`,
	} {
		if _, err := conn.Exec(ctx, query); err != nil {
			if pgerr := new(pgconn.PgError); errors.As(err, &pgerr) &&
				pgerr.Code == pgerrcode.DuplicateTable {
				continue
			}
			return xe.Wrap(err)
		}
	}
	return nil
}

type connectionRow struct {
	Kind    string `sql:"kind"`
	Payload []byte `sql:"payload"`
}

type flagRow struct {
	Name   string `sql:"name"`
	Status string `sql:"status"`
}

func (r *pgRegistry) Get(ctx context.Context) (domain.State, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return domain.State{}, xe.Wrap(err)
	}
	defer conn.Release()

	conns, err := scanner.New[connectionRow]().QueryAll(
		ctx, conn, `select "kind", "payload" from "connection"`,
	)
	if err != nil {
		return domain.State{}, xe.Wrap(err)
	}

	state := domain.State{Flags: map[domain.FlagName]domain.Flag{}}
	for _, row := range conns {
		kind, ok := domain.AsConnectionKind(row.Kind)
		if !ok {
			return domain.State{}, domain.NewErrBadLogic(
				"unknown connection kind in registry: %s", row.Kind,
			)
		}
		switch kind {
		case domain.DatabaseConnectionKind:
			c := &domain.DatabaseConnection{}
			if err := json.Unmarshal(row.Payload, c); err != nil {
				return domain.State{}, xe.Wrap(err)
			}
			state.Database = c
		case domain.KafkaConnectionKind:
			c := &domain.KafkaConnection{}
			if err := json.Unmarshal(row.Payload, c); err != nil {
				return domain.State{}, xe.Wrap(err)
			}
			state.Kafka = c
		case domain.OpensearchConnectionKind:
			c := &domain.OpensearchConnection{}
			if err := json.Unmarshal(row.Payload, c); err != nil {
				return domain.State{}, xe.Wrap(err)
			}
			state.Opensearch = c
		}
	}

	flags, err := scanner.New[flagRow]().QueryAll(
		ctx, conn, `select "name", "status" from "flag"`,
	)
	if err != nil {
		return domain.State{}, xe.Wrap(err)
	}
	for _, row := range flags {
		flag, ok := domain.AsFlag(row.Status)
		if !ok {
			return domain.State{}, domain.NewErrBadLogic(
				"unknown flag status in registry: %s = %s", row.Name, row.Status,
			)
		}
		state.Flags[domain.FlagName(row.Name)] = flag
	}

	return state, nil
}

func (r *pgRegistry) PutDatabase(ctx context.Context, conn domain.DatabaseConnection) error {
	return r.put(ctx, domain.DatabaseConnectionKind, conn)
}

func (r *pgRegistry) PutKafka(ctx context.Context, conn domain.KafkaConnection) error {
	return r.put(ctx, domain.KafkaConnectionKind, conn)
}

func (r *pgRegistry) PutOpensearch(ctx context.Context, conn domain.OpensearchConnection) error {
	return r.put(ctx, domain.OpensearchConnectionKind, conn)
}

func (r *pgRegistry) put(ctx context.Context, kind domain.ConnectionKind, desc any) error {
	payload, err := json.Marshal(desc)
	if err != nil {
		return xe.Wrap(err)
	}

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return xe.Wrap(err)
	}
	defer conn.Release()

	if _, err := conn.Exec(
		ctx,
		`
		insert into "connection" ("kind", "payload") values ($1, $2)
		on conflict ("kind") do update set "payload" = excluded."payload"
		`,
		string(kind), payload,
	); err != nil {
		return xe.Wrap(err)
	}
	return nil
}

func (r *pgRegistry) Remove(ctx context.Context, kind domain.ConnectionKind) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return xe.Wrap(err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(
		ctx, `delete from "connection" where "kind" = $1`, string(kind),
	); err != nil {
		return xe.Wrap(err)
	}

	for _, name := range domain.FlagsClearedByRemoval(kind) {
		if _, err := tx.Exec(
			ctx, `delete from "flag" where "name" = $1`, string(name),
		); err != nil {
			return xe.Wrap(err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return xe.Wrap(err)
	}
	return nil
}

func (r *pgRegistry) SetFlag(ctx context.Context, name domain.FlagName, flag domain.Flag) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return xe.Wrap(err)
	}
	defer conn.Release()

	if flag == domain.Unknown {
		if _, err := conn.Exec(
			ctx, `delete from "flag" where "name" = $1`, string(name),
		); err != nil {
			return xe.Wrap(err)
		}
		return nil
	}

	if _, err := conn.Exec(
		ctx,
		`
		insert into "flag" ("name", "status") values ($1, $2)
		on conflict ("name") do update set "status" = excluded."status"
		`,
		string(name), string(flag),
	); err != nil {
		return xe.Wrap(err)
	}
	return nil
}
