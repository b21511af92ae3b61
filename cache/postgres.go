//
// Copyright 2016 Gregory Trubetskoy. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cache

import (
	"database/sql"
	"fmt"
	"log"

	_ "github.com/lib/pq"
)

// pgStore keeps entries in PostgreSQL, for dashboard deployments
// that already run one. Entries are a single gob blob per key; the
// table is created on first connect if missing.
type pgStore struct {
	db     *sql.DB
	prefix string

	sqlSelect *sql.Stmt
	sqlUpsert *sql.Stmt
}

// NewPostgresStore connects with the given connect string and
// ensures the schema. prefix is prepended to the table name.
func NewPostgresStore(connectString, prefix string) (Store, error) {
	db, err := sql.Open("postgres", connectString)
	if err != nil {
		return nil, err
	}

	p := &pgStore{db: db, prefix: prefix}
	if err := p.createTablesIfNotExist(); err != nil {
		return nil, err
	}
	if err := p.prepareSqlStatements(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *pgStore) createTablesIfNotExist() error {
	createSql := fmt.Sprintf(`
       CREATE TABLE IF NOT EXISTS %[1]schart_cache (
       key TEXT NOT NULL PRIMARY KEY,
       entry BYTEA NOT NULL,
       updated TIMESTAMPTZ NOT NULL DEFAULT now());
    `, p.prefix)

	if _, err := p.db.Exec(createSql); err != nil {
		log.Printf("ERROR: initial CREATE TABLE failed: %v", err)
		return err
	}
	return nil
}

func (p *pgStore) prepareSqlStatements() (err error) {
	if p.sqlSelect, err = p.db.Prepare(fmt.Sprintf(
		"SELECT entry FROM %[1]schart_cache WHERE key = $1", p.prefix)); err != nil {
		return err
	}
	if p.sqlUpsert, err = p.db.Prepare(fmt.Sprintf(
		"INSERT INTO %[1]schart_cache (key, entry, updated) VALUES ($1, $2, now()) "+
			"ON CONFLICT (key) DO UPDATE SET entry = $2, updated = now()", p.prefix)); err != nil {
		return err
	}
	return nil
}

func (p *pgStore) Get(key string) (*Entry, error) {
	var data []byte
	err := p.sqlSelect.QueryRow(key).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeEntry(data)
}

func (p *pgStore) Put(key string, e *Entry) error {
	data, err := e.encode()
	if err != nil {
		return err
	}
	_, err = p.sqlUpsert.Exec(key, data)
	return err
}

func (p *pgStore) Purge() error {
	_, err := p.db.Exec(fmt.Sprintf("DELETE FROM %[1]schart_cache", p.prefix))
	return err
}

func (p *pgStore) Close() error { return p.db.Close() }
