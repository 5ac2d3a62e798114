package indexdb

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"github.com/agentcontest/massim-2022/internal/observerproto"
	"github.com/agentcontest/massim-2022/internal/persistence/snapshot"
	"github.com/agentcontest/massim-2022/internal/sim/catalogs"
	"github.com/agentcontest/massim-2022/internal/sim/tuning"
	"github.com/agentcontest/massim-2022/internal/sim/world"
)

// SQLiteIndex is a queryable secondary index of a simulation. The JSONL logs
// stay the source of truth; requests are dropped when the writer falls behind.
type SQLiteIndex struct {
	db  *sql.DB
	sim string

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	dropTick     atomic.Uint64
	dropAudit    atomic.Uint64
	dropStep     atomic.Uint64
	dropSnapshot atomic.Uint64
	dropResult   atomic.Uint64
}

type Stats struct {
	QueueDepth        int
	QueueCapacity     int
	DropTickTotal     uint64
	DropAuditTotal    uint64
	DropStepTotal     uint64
	DropSnapshotTotal uint64
	DropResultTotal   uint64
}

type reqKind int

const (
	reqTick reqKind = iota + 1
	reqAudit
	reqStep
	reqSnapshot
	reqResult
)

type req struct {
	kind reqKind

	tick     world.TickLogEntry
	audit    world.AuditEntry
	step     world.StepSummary
	snapshot snapshotRow
	result   observerproto.Result
}

type snapshotRow struct {
	Step     uint64
	Path     string
	Seed     int64
	Width    int
	Height   int
	Entities int
	Blocks   int
	Tasks    int
	Norms    int
}

// OpenSQLite opens (or creates) the index for simulation sim at path.
func OpenSQLite(path, sim string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db:  db,
		sim: sim,
		ch:  make(chan req, 65536),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS catalogs (
			name TEXT PRIMARY KEY,
			digest TEXT NOT NULL,
			json TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS steps (
			step INTEGER PRIMARY KEY,
			digest TEXT NOT NULL,
			actions INTEGER NOT NULL,
			raw_json TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS actions (
			step INTEGER NOT NULL,
			agent TEXT NOT NULL,
			action TEXT NOT NULL,
			params TEXT NOT NULL,
			result TEXT NOT NULL,
			PRIMARY KEY (step, agent)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_actions_agent_step ON actions(agent, step);`,
		`CREATE INDEX IF NOT EXISTS idx_actions_result ON actions(result, step);`,
		`CREATE TABLE IF NOT EXISTS audits (
			step INTEGER NOT NULL,
			seq INTEGER NOT NULL,
			actor TEXT NOT NULL,
			action TEXT NOT NULL,
			x INTEGER NOT NULL,
			y INTEGER NOT NULL,
			reason TEXT,
			raw_json TEXT NOT NULL,
			PRIMARY KEY (step, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_audits_actor_step ON audits(actor, step);`,
		`CREATE INDEX IF NOT EXISTS idx_audits_action_step ON audits(action, step);`,
		`CREATE TABLE IF NOT EXISTS step_stats (
			step INTEGER PRIMARY KEY,
			deactivated INTEGER NOT NULL,
			open_tasks INTEGER NOT NULL,
			active_norms INTEGER NOT NULL,
			violations INTEGER NOT NULL,
			events INTEGER NOT NULL,
			step_ms REAL NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS scores (
			step INTEGER NOT NULL,
			team TEXT NOT NULL,
			score INTEGER NOT NULL,
			PRIMARY KEY (step, team)
		);`,
		`CREATE TABLE IF NOT EXISTS snapshots (
			step INTEGER PRIMARY KEY,
			path TEXT NOT NULL,
			seed INTEGER NOT NULL,
			width INTEGER NOT NULL,
			height INTEGER NOT NULL,
			entities INTEGER NOT NULL,
			blocks INTEGER NOT NULL,
			tasks INTEGER NOT NULL,
			norms INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS results (
			team TEXT PRIMARY KEY,
			score INTEGER NOT NULL,
			rank INTEGER NOT NULL,
			recorded_at TEXT NOT NULL
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *SQLiteIndex) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	return Stats{
		QueueDepth:        len(s.ch),
		QueueCapacity:     cap(s.ch),
		DropTickTotal:     s.dropTick.Load(),
		DropAuditTotal:    s.dropAudit.Load(),
		DropStepTotal:     s.dropStep.Load(),
		DropSnapshotTotal: s.dropSnapshot.Load(),
		DropResultTotal:   s.dropResult.Load(),
	}
}

func (s *SQLiteIndex) enqueue(r req, drops *atomic.Uint64) {
	if s == nil || s.closed.Load() {
		return
	}
	select {
	case s.ch <- r:
	default:
		drops.Add(1)
	}
}

func (s *SQLiteIndex) WriteTick(entry world.TickLogEntry) error {
	if s == nil {
		return nil
	}
	s.enqueue(req{kind: reqTick, tick: entry}, &s.dropTick)
	return nil
}

func (s *SQLiteIndex) WriteAudit(entry world.AuditEntry) error {
	if s == nil {
		return nil
	}
	s.enqueue(req{kind: reqAudit, audit: entry}, &s.dropAudit)
	return nil
}

// ObserveStep records the scores and counters of a finished step.
func (s *SQLiteIndex) ObserveStep(sum world.StepSummary) {
	if s == nil {
		return
	}
	s.enqueue(req{kind: reqStep, step: sum}, &s.dropStep)
}

func (s *SQLiteIndex) RecordSnapshot(path string, snap snapshot.SnapshotV1) {
	if s == nil {
		return
	}
	r := snapshotRow{
		Step:     snap.Header.Tick,
		Path:     path,
		Seed:     snap.Seed,
		Width:    snap.Width,
		Height:   snap.Height,
		Entities: len(snap.Entities),
		Blocks:   len(snap.Blocks),
		Tasks:    len(snap.Tasks),
		Norms:    len(snap.Norms),
	}
	s.enqueue(req{kind: reqSnapshot, snapshot: r}, &s.dropSnapshot)
}

func (s *SQLiteIndex) RecordResult(res observerproto.Result) {
	if s == nil {
		return
	}
	s.enqueue(req{kind: reqResult, result: res}, &s.dropResult)
}

// UpsertCatalogs stores the raw config files, the resolved roles and the
// applied tuning together with their digests.
func (s *SQLiteIndex) UpsertCatalogs(configDir string, cats *catalogs.Catalogs, tune tuning.Tuning) error {
	if s == nil {
		return nil
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)

	raw := map[string][]byte{}
	read := func(name, path string) {
		b, err := os.ReadFile(path)
		if err != nil {
			return
		}
		raw[name] = b
	}
	if configDir != "" {
		read("roles_defs", filepath.Join(configDir, "roles.json"))
		read("norm_templates", filepath.Join(configDir, "norm_templates.json"))
	}

	type kv struct {
		name   string
		digest string
		json   []byte
	}
	var rows []kv
	if b := raw["roles_defs"]; len(b) > 0 {
		rows = append(rows, kv{name: "roles_defs", digest: cats.Roles.Digest, json: b})
	}
	{
		roles := append([]catalogs.Role(nil), cats.Roles.Roles...)
		sort.Slice(roles, func(i, j int) bool { return roles[i].Name < roles[j].Name })
		if b, _ := json.Marshal(roles); len(b) > 0 {
			rows = append(rows, kv{name: "roles", digest: cats.Roles.Digest, json: b})
		}
	}
	if b := raw["norm_templates"]; len(b) > 0 {
		rows = append(rows, kv{name: "norm_templates", digest: cats.Norms.Digest, json: b})
	}
	{
		b, _ := json.Marshal(tune)
		sum := sha256.Sum256(b)
		rows = append(rows, kv{name: "tuning", digest: hex.EncodeToString(sum[:]), json: b})
	}

	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1'),('sim',?)`, s.sim); err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO catalogs(name,digest,json,updated_at) VALUES(?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, r := range rows {
		if r.name == "" || r.digest == "" || len(r.json) == 0 {
			continue
		}
		if _, err := stmt.Exec(r.name, r.digest, string(r.json), now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertStep, _ := s.db.Prepare(`INSERT OR REPLACE INTO steps(step,digest,actions,raw_json) VALUES(?,?,?,?)`)
	insertAction, _ := s.db.Prepare(`INSERT OR REPLACE INTO actions(step,agent,action,params,result) VALUES(?,?,?,?,?)`)
	insertAudit, _ := s.db.Prepare(`INSERT OR REPLACE INTO audits(step,seq,actor,action,x,y,reason,raw_json) VALUES(?,?,?,?,?,?,?,?)`)
	insertStats, _ := s.db.Prepare(`INSERT OR REPLACE INTO step_stats(step,deactivated,open_tasks,active_norms,violations,events,step_ms) VALUES(?,?,?,?,?,?,?)`)
	insertScore, _ := s.db.Prepare(`INSERT OR REPLACE INTO scores(step,team,score) VALUES(?,?,?)`)
	insertSnapshot, _ := s.db.Prepare(`INSERT OR REPLACE INTO snapshots(step,path,seed,width,height,entities,blocks,tasks,norms) VALUES(?,?,?,?,?,?,?,?,?)`)
	insertResult, _ := s.db.Prepare(`INSERT OR REPLACE INTO results(team,score,rank,recorded_at) VALUES(?,?,?,?)`)
	defer func() {
		for _, st := range []*sql.Stmt{insertStep, insertAction, insertAudit, insertStats, insertScore, insertSnapshot, insertResult} {
			if st != nil {
				_ = st.Close()
			}
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 2000
		commitMaxWait = 2 * time.Second

		lastAuditStep uint64
		auditSeq      int
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	exec := func(st *sql.Stmt, args ...any) bool {
		if st == nil || tx == nil {
			return false
		}
		if _, err := tx.Stmt(st).Exec(args...); err != nil {
			rollback()
			return false
		}
		opCount++
		return true
	}

	for r := range s.ch {
		begin()
		if tx == nil {
			continue
		}
		switch r.kind {
		case reqTick:
			b, _ := json.Marshal(r.tick)
			if !exec(insertStep, int64(r.tick.Tick), r.tick.Digest, len(r.tick.Actions), string(b)) {
				continue
			}
			for _, a := range r.tick.Actions {
				if !exec(insertAction, int64(r.tick.Tick), a.Agent, a.Action, strings.Join(a.Params, ","), a.Result) {
					break
				}
			}

		case reqAudit:
			a := r.audit
			if a.Tick != lastAuditStep {
				lastAuditStep = a.Tick
				auditSeq = 0
			}
			seq := auditSeq
			auditSeq++
			raw, _ := json.Marshal(a)
			exec(insertAudit, int64(a.Tick), seq, a.Actor, a.Action, a.Pos[0], a.Pos[1], a.Reason, string(raw))

		case reqStep:
			sum := r.step
			if !exec(insertStats, sum.Step, sum.Deactivated, sum.OpenTasks, sum.ActiveNorms, sum.Violations, sum.Events, sum.StepMS) {
				continue
			}
			teams := make([]string, 0, len(sum.Scores))
			for team := range sum.Scores {
				teams = append(teams, team)
			}
			sort.Strings(teams)
			for _, team := range teams {
				if !exec(insertScore, sum.Step, team, sum.Scores[team]) {
					break
				}
			}

		case reqSnapshot:
			sn := r.snapshot
			exec(insertSnapshot, int64(sn.Step), sn.Path, sn.Seed, sn.Width, sn.Height, sn.Entities, sn.Blocks, sn.Tasks, sn.Norms)

		case reqResult:
			now := time.Now().UTC().Format(time.RFC3339Nano)
			for _, t := range r.result.Teams {
				if !exec(insertResult, t.Name, t.Score, t.Rank, now) {
					break
				}
			}
			// the result is the last thing a match writes
			commit()
			continue
		}
		if tx != nil && (opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait) {
			commit()
		}
	}

	commit()
}
