package postgres

// Schema creates the element tables. All statements are idempotent.
// Undirected edges are stored with src <= dst. Vertex columns use the "C"
// collation so that the comparison is bytewise, matching the order
// types.CanonicalPair puts endpoints in.
const Schema = `
CREATE TABLE IF NOT EXISTS entities (
    grp        TEXT NOT NULL,
    vertex     TEXT COLLATE "C" NOT NULL,
    properties JSONB,
    PRIMARY KEY (grp, vertex)
);

CREATE INDEX IF NOT EXISTS idx_entities_vertex ON entities(vertex);

CREATE TABLE IF NOT EXISTS edges (
    grp        TEXT NOT NULL,
    src        TEXT COLLATE "C" NOT NULL,
    dst        TEXT COLLATE "C" NOT NULL,
    directed   BOOLEAN NOT NULL,
    properties JSONB,
    PRIMARY KEY (grp, src, dst, directed),
    CHECK (directed OR src <= dst)
);

CREATE INDEX IF NOT EXISTS idx_edges_src ON edges(src);
CREATE INDEX IF NOT EXISTS idx_edges_dst ON edges(dst);
`
