package sqlite

// Schema creates the element tables. Undirected edges are stored with
// src <= dst so that one row identifies the edge in either orientation.
const Schema = `
CREATE TABLE IF NOT EXISTS entities (
    grp        TEXT NOT NULL,
    vertex     TEXT NOT NULL,
    properties TEXT,
    PRIMARY KEY (grp, vertex)
);

CREATE INDEX IF NOT EXISTS idx_entities_vertex ON entities(vertex);

CREATE TABLE IF NOT EXISTS edges (
    grp        TEXT NOT NULL,
    src        TEXT NOT NULL,
    dst        TEXT NOT NULL,
    directed   INTEGER NOT NULL,
    properties TEXT,
    PRIMARY KEY (grp, src, dst, directed)
);

CREATE INDEX IF NOT EXISTS idx_edges_src ON edges(src);
CREATE INDEX IF NOT EXISTS idx_edges_dst ON edges(dst);
`
