// Package neo4j provides a storage.Backend on a Neo4j graph database.
//
// Vertices are (:Vertex {id}) nodes, edges are [:EDGE {grp, directed,
// properties}] relationships between them in canonical orientation, and
// entities are (:Entity {vertex, grp, properties}) nodes.
package neo4j

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/db"

	"github.com/scrypster/seedgraph/internal/storage"
	"github.com/scrypster/seedgraph/pkg/types"
)

// Config holds the connection settings.
type Config struct {
	URI      string
	Username string
	Password string
	Database string
}

// Store implements storage.Backend on Neo4j.
type Store struct {
	client   neo4j.DriverWithContext
	database string
}

var _ storage.Backend = (*Store)(nil)

var constraints = []string{
	`CREATE CONSTRAINT seedgraph_vertex_id IF NOT EXISTS FOR (v:Vertex) REQUIRE v.id IS UNIQUE`,
	`CREATE INDEX seedgraph_entity_vertex IF NOT EXISTS FOR (e:Entity) ON (e.vertex)`,
}

// New connects to Neo4j, verifies connectivity and creates the indexes.
func New(ctx context.Context, cfg Config) (*Store, error) {
	client, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.Username, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}
	if err := client.VerifyConnectivity(ctx); err != nil {
		_ = client.Close(ctx)
		return nil, fmt.Errorf("neo4j: failed to connect: %w", err)
	}

	database := cfg.Database
	if database == "" {
		database = "neo4j"
	}
	s := &Store{client: client, database: database}

	session := s.session(ctx)
	defer session.Close(ctx)
	for _, stmt := range constraints {
		res, err := session.Run(ctx, stmt, nil)
		if err == nil {
			_, err = res.Consume(ctx)
		}
		if err != nil {
			_ = client.Close(ctx)
			return nil, fmt.Errorf("neo4j: failed to apply schema: %w", err)
		}
	}
	return s, nil
}

func (s *Store) session(ctx context.Context) neo4j.SessionWithContext {
	return s.client.NewSession(ctx, neo4j.SessionConfig{DatabaseName: s.database})
}

func fail(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return storage.Unavailable("neo4j: "+op, err)
}

// AddElements merges elements in a single write transaction.
func (s *Store) AddElements(ctx context.Context, elements []types.Element) error {
	if err := storage.ValidateElements(elements); err != nil {
		return err
	}

	type write struct {
		query  string
		params map[string]any
	}
	writes := make([]write, 0, len(elements))
	for _, el := range elements {
		switch e := el.(type) {
		case types.Entity:
			props, err := storage.MarshalProperties(e.Properties)
			if err != nil {
				return err
			}
			writes = append(writes, write{
				query: `
					MERGE (e:Entity {vertex: $vertex, grp: $grp})
					SET e.properties = $properties`,
				params: map[string]any{
					"vertex":     string(e.Vertex),
					"grp":        string(e.Group),
					"properties": nullableString(props),
				},
			})
		case types.Edge:
			e = e.Canonical()
			props, err := storage.MarshalProperties(e.Properties)
			if err != nil {
				return err
			}
			writes = append(writes, write{
				query: `
					MERGE (s:Vertex {id: $src})
					MERGE (d:Vertex {id: $dst})
					MERGE (s)-[r:EDGE {grp: $grp, directed: $directed}]->(d)
					SET r.properties = $properties`,
				params: map[string]any{
					"src":        string(e.Source),
					"dst":        string(e.Destination),
					"grp":        string(e.Group),
					"directed":   e.Directed,
					"properties": nullableString(props),
				},
			})
		}
	}

	session := s.session(ctx)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		for _, w := range writes {
			res, err := tx.Run(ctx, w.query, w.params)
			if err != nil {
				return nil, err
			}
			if _, err := res.Consume(ctx); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	if err != nil {
		return fail(ctx, "add elements", err)
	}
	return nil
}

// read runs query in a read transaction and collects its records.
func (s *Store) read(ctx context.Context, query string, params map[string]any) ([]*db.Record, error) {
	session := s.session(ctx)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}
		return res.Collect(ctx)
	})
	if err != nil {
		return nil, err
	}
	return result.([]*db.Record), nil
}

const entityColumns = `e.grp AS grp, e.vertex AS vertex, e.properties AS properties`

const edgeColumns = `r.grp AS grp, startNode(r).id AS src, endNode(r).id AS dst,
	r.directed AS directed, r.properties AS properties`

// EntitiesAt returns the entities at v.
func (s *Store) EntitiesAt(ctx context.Context, v types.VertexID) ([]types.Entity, error) {
	records, err := s.read(ctx,
		`MATCH (e:Entity {vertex: $vertex}) RETURN `+entityColumns,
		map[string]any{"vertex": string(v)})
	if err != nil {
		return nil, fail(ctx, "entities at", err)
	}
	out, err := entitiesFromRecords(records)
	if err != nil {
		return nil, fail(ctx, "entities at", err)
	}
	return out, nil
}

// EdgesBetween returns the edges joining source and destination.
func (s *Store) EdgesBetween(ctx context.Context, source, destination types.VertexID, directed bool) ([]types.Edge, error) {
	want := types.Edge{Source: source, Destination: destination, Directed: directed}.Canonical()
	records, err := s.read(ctx, `
		MATCH (:Vertex {id: $src})-[r:EDGE {directed: $directed}]->(:Vertex {id: $dst})
		RETURN `+edgeColumns,
		map[string]any{
			"src":      string(want.Source),
			"dst":      string(want.Destination),
			"directed": directed,
		})
	if err != nil {
		return nil, fail(ctx, "edges between", err)
	}
	out, err := edgesFromRecords(records)
	if err != nil {
		return nil, fail(ctx, "edges between", err)
	}
	return out, nil
}

// IncidentEdges returns the edges with v as an endpoint.
func (s *Store) IncidentEdges(ctx context.Context, v types.VertexID) ([]types.Edge, error) {
	records, err := s.read(ctx, `
		MATCH (:Vertex {id: $vertex})-[r:EDGE]-()
		WITH DISTINCT r
		RETURN `+edgeColumns,
		map[string]any{"vertex": string(v)})
	if err != nil {
		return nil, fail(ctx, "incident edges", err)
	}
	out, err := edgesFromRecords(records)
	if err != nil {
		return nil, fail(ctx, "incident edges", err)
	}
	return out, nil
}

// ScanGroups calls fn for every element in groups, entities first. Records
// are handed to fn as the driver receives them. An empty groups slice scans
// all groups.
func (s *Store) ScanGroups(ctx context.Context, groups []types.Group, fn func(types.Element) error) error {
	names := make([]any, len(groups))
	for i, g := range groups {
		names[i] = string(g)
	}
	params := map[string]any{"groups": names}

	err := s.scan(ctx, `
		MATCH (e:Entity) WHERE size($groups) = 0 OR e.grp IN $groups
		RETURN `+entityColumns, params, func(rec *db.Record) (types.Element, error) {
		return entityFromRecord(rec)
	}, fn)
	if err != nil {
		return err
	}
	return s.scan(ctx, `
		MATCH (:Vertex)-[r:EDGE]->(:Vertex) WHERE size($groups) = 0 OR r.grp IN $groups
		RETURN `+edgeColumns, params, func(rec *db.Record) (types.Element, error) {
		return edgeFromRecord(rec)
	}, fn)
}

// scan runs query in an auto-commit transaction and passes each decoded
// record to fn. Managed transactions may be retried, which would repeat
// records already handed out. Errors from fn are returned unchanged.
func (s *Store) scan(ctx context.Context, query string, params map[string]any,
	decode func(*db.Record) (types.Element, error), fn func(types.Element) error) error {
	session := s.client.NewSession(ctx, neo4j.SessionConfig{
		DatabaseName: s.database,
		AccessMode:   neo4j.AccessModeRead,
	})
	defer session.Close(ctx)

	res, err := session.Run(ctx, query, params)
	if err != nil {
		return fail(ctx, "scan", err)
	}
	for res.Next(ctx) {
		el, err := decode(res.Record())
		if err != nil {
			return fail(ctx, "scan", err)
		}
		if err := fn(el); err != nil {
			return err
		}
	}
	if err := res.Err(); err != nil {
		return fail(ctx, "scan", err)
	}
	return nil
}

// Close closes the driver.
func (s *Store) Close() error {
	return s.client.Close(context.Background())
}

func entitiesFromRecords(records []*db.Record) ([]types.Entity, error) {
	out := make([]types.Entity, 0, len(records))
	for _, rec := range records {
		e, err := entityFromRecord(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func entityFromRecord(rec *db.Record) (types.Entity, error) {
	m := rec.AsMap()
	props, err := propertiesValue(m["properties"])
	if err != nil {
		return types.Entity{}, err
	}
	return types.Entity{
		Group:      types.Group(stringValue(m["grp"])),
		Vertex:     types.VertexID(stringValue(m["vertex"])),
		Properties: props,
	}, nil
}

func edgesFromRecords(records []*db.Record) ([]types.Edge, error) {
	out := make([]types.Edge, 0, len(records))
	for _, rec := range records {
		e, err := edgeFromRecord(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func edgeFromRecord(rec *db.Record) (types.Edge, error) {
	m := rec.AsMap()
	props, err := propertiesValue(m["properties"])
	if err != nil {
		return types.Edge{}, err
	}
	directed, _ := m["directed"].(bool)
	return types.Edge{
		Group:       types.Group(stringValue(m["grp"])),
		Source:      types.VertexID(stringValue(m["src"])),
		Destination: types.VertexID(stringValue(m["dst"])),
		Directed:    directed,
		Properties:  props,
	}, nil
}

func stringValue(v any) string {
	s, _ := v.(string)
	return s
}

func propertiesValue(v any) (types.Properties, error) {
	s, ok := v.(string)
	if !ok {
		return nil, nil
	}
	return storage.UnmarshalProperties([]byte(s))
}

func nullableString(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}
