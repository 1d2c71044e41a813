package tracer

import (
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/sirupsen/logrus"
	"github.com/stleox/seefaas/pkg/config"
	"github.com/zeromicro/go-zero/core/stores/sqlx"
)

// Olap mirrors persisted traces and profiles into a MySQL-protocol OLAP
// database for ad-hoc analysis. A nil *Olap is a valid, disabled sink.
type Olap struct {
	recordInserter  *sqlx.BulkInserter
	profileInserter *sqlx.BulkInserter
}

// NewOlap returns nil when dsn is empty.
func NewOlap(dsn string) (*Olap, error) {
	if dsn == "" {
		return nil, nil
	}

	db := sqlx.NewMysql(dsn)

	if err := CreateRecordTable(db); err != nil {
		return nil, fmt.Errorf("creating table t_Record: %w", err)
	}
	recordInserter, err := NewRecordInserter(db)
	if err != nil {
		return nil, fmt.Errorf("opening table t_Record: %w", err)
	}

	if err := CreateProfileTable(db); err != nil {
		return nil, fmt.Errorf("creating table t_Profile: %w", err)
	}
	profileInserter, err := NewProfileInserter(db)
	if err != nil {
		return nil, fmt.Errorf("opening table t_Profile: %w", err)
	}

	return &Olap{
		recordInserter:  recordInserter,
		profileInserter: profileInserter,
	}, nil
}

// DB

func CreateRecordTable(db sqlx.SqlConn) error {
	_, err := db.Exec("CREATE TABLE IF NOT EXISTS `t_Record` " +
		"(record_id VARCHAR(64), " +
		"trace_id VARCHAR(64), " +
		"parent_id VARCHAR(64), " +
		"function_key VARCHAR(255), " +
		"invoked_at DATETIME(6), " +
		"finished_at DATETIME(6), " +
		"total_ms DOUBLE, " +
		"handler_ms DOUBLE) " +
		"DISTRIBUTED BY HASH(trace_id) BUCKETS 32 " +
		"PROPERTIES (\"replication_num\" = \"1\");")
	return err
}

func NewRecordInserter(db sqlx.SqlConn) (*sqlx.BulkInserter, error) {
	return sqlx.NewBulkInserter(db, "INSERT INTO `t_Record` "+
		"(record_id, "+
		"trace_id, "+
		"parent_id, "+
		"function_key, "+
		"invoked_at, "+
		"finished_at, "+
		"total_ms, "+
		"handler_ms) "+
		"VALUES (?,?,?,?,?,?,?,?)")
}

func CreateProfileTable(db sqlx.SqlConn) error {
	_, err := db.Exec("CREATE TABLE IF NOT EXISTS `t_Profile` " +
		"(profile_id VARCHAR(64), " +
		"function_key VARCHAR(255), " +
		"trace_id VARCHAR(64)) " +
		"DISTRIBUTED BY HASH(profile_id) BUCKETS 8 " +
		"PROPERTIES (\"replication_num\" = \"1\");")
	return err
}

func NewProfileInserter(db sqlx.SqlConn) (*sqlx.BulkInserter, error) {
	return sqlx.NewBulkInserter(db, "INSERT INTO `t_Profile` "+
		"(profile_id, "+
		"function_key, "+
		"trace_id) "+
		"VALUES (?,?,?)")
}

func (o *Olap) InsertTrace(t *Trace) {
	if o == nil {
		return
	}
	for _, rec := range t.Records {
		var invokedAt, finishedAt time.Time
		if fn := rec.FunctionContext; fn != nil {
			invokedAt, finishedAt = fn.InvokedAt, fn.FinishedAt
		}
		err := o.recordInserter.Insert(
			rec.RecordID(),
			t.TraceID,
			rec.ParentID(),
			rec.FunctionKey(),
			invokedAt.UTC().Format(config.DATE6),
			finishedAt.UTC().Format(config.DATE6),
			rec.TotalExecutionTime(),
			rec.HandlerExecutionTime())
		if err != nil {
			logrus.WithError(err).WithField("record_id", rec.RecordID()).Warn("SeeFaaS couldn't insert into t_Record")
		}
	}
}

// InsertProfile writes one row per trace of p. Rows are appended, readers
// deduplicate on (profile_id, trace_id).
func (o *Olap) InsertProfile(p *Profile) {
	if o == nil {
		return
	}
	for _, traceID := range p.TraceIDs {
		err := o.profileInserter.Insert(p.ProfileID, p.FunctionKey, traceID)
		if err != nil {
			logrus.WithError(err).WithField("profile_id", p.ProfileID).Warn("SeeFaaS couldn't insert into t_Profile")
		}
	}
}

func (o *Olap) Flush() {
	if o == nil {
		return
	}
	o.recordInserter.Flush()
	o.profileInserter.Flush()
}
