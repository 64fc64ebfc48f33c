// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/pdiddy/manual-preview/pkg/types"
)

// sqliteMaxParams caps bound parameters per statement. Older SQLite builds
// reject more than 999.
const sqliteMaxParams = 500

// EffectiveIDs returns ids followed by the sponsored ids, without
// duplicates or empty values. It always builds a new slice; ids is never
// modified.
func (s *Store) EffectiveIDs(ids []types.ProductID) []types.ProductID {
	seen := make(map[types.ProductID]struct{}, len(ids)+len(s.sponsored))
	out := make([]types.ProductID, 0, len(ids)+len(s.sponsored))
	for _, group := range [][]types.ProductID{ids, s.sponsored} {
		for _, id := range group {
			if id == "" {
				continue
			}
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}

// FetchProducts returns the records for ids plus every sponsored id, ordered
// by product id. When there is nothing to look up it returns an empty slice
// without touching the database. Failures wrap ErrStorage.
func (s *Store) FetchProducts(ctx context.Context, ids []types.ProductID) ([]types.ProductRecord, error) {
	effective := s.EffectiveIDs(ids)
	if len(effective) == 0 {
		return []types.ProductRecord{}, nil
	}

	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: acquiring connection: %w", ErrStorage, err)
	}
	defer conn.Close()

	records := make([]types.ProductRecord, 0, len(effective))
	for _, chunk := range s.chunks(effective) {
		query, args := s.lookupQuery(chunk)
		got, err := queryRecords(ctx, conn, query, args)
		if err != nil {
			return nil, err
		}
		records = append(records, got...)
	}

	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })

	s.log.Debug().
		Int("requested", len(ids)).
		Int("effective", len(effective)).
		Int("found", len(records)).
		Msg("fetched products")

	return records, nil
}

// chunks splits ids so no statement exceeds the driver's parameter limit.
// PostgreSQL binds the whole list as a single array parameter.
func (s *Store) chunks(ids []types.ProductID) [][]types.ProductID {
	if s.driver == types.DriverPostgres {
		return [][]types.ProductID{ids}
	}
	var out [][]types.ProductID
	for len(ids) > sqliteMaxParams {
		out = append(out, ids[:sqliteMaxParams])
		ids = ids[sqliteMaxParams:]
	}
	return append(out, ids)
}

// lookupQuery builds the statement text and its bound arguments. The text
// depends only on len(ids).
func (s *Store) lookupQuery(ids []types.ProductID) (string, []any) {
	const head = `SELECT product_id, product_manual_data FROM product WHERE product_id `

	if s.driver == types.DriverPostgres {
		return head + `= ANY($1) ORDER BY product_id`, []any{idStrings(ids)}
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", ")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = string(id)
	}
	return head + `IN (` + placeholders + `) ORDER BY product_id`, args
}

func queryRecords(ctx context.Context, conn *sql.Conn, query string, args []any) ([]types.ProductRecord, error) {
	rows, err := conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: querying products: %w", ErrStorage, err)
	}
	defer rows.Close()

	var records []types.ProductRecord
	for rows.Next() {
		var (
			id   string
			data []byte
		)
		if err := rows.Scan(&id, &data); err != nil {
			return nil, fmt.Errorf("%w: scanning product row: %w", ErrStorage, err)
		}
		records = append(records, types.ProductRecord{ID: types.ProductID(id), ManualData: data})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: reading product rows: %w", ErrStorage, err)
	}
	return records, nil
}
