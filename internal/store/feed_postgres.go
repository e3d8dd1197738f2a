package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// NotifyChannel is the Postgres LISTEN/NOTIFY channel the row triggers use.
const NotifyChannel = "attendance_changes"

// PostgresFeed relays trigger notifications to per-employee subscribers.
type PostgresFeed struct {
	*Hub
	listener *pq.Listener
}

// NewPostgresFeed opens a dedicated LISTEN connection. dsn is a lib/pq
// connection string.
func NewPostgresFeed(dsn string) (*PostgresFeed, error) {
	report := func(ev pq.ListenerEventType, err error) {
		if err != nil {
			logrus.WithError(err).WithField("event", ev).Warn("Change feed listener problem.")
		}
	}
	l := pq.NewListener(dsn, 2*time.Second, time.Minute, report)
	if err := l.Listen(NotifyChannel); err != nil {
		l.Close()
		return nil, fmt.Errorf("listen %s: %w", NotifyChannel, err)
	}
	return &PostgresFeed{Hub: NewHub(), listener: l}, nil
}

// Run relays notifications until ctx is cancelled.
func (f *PostgresFeed) Run(ctx context.Context) {
	ping := time.NewTicker(90 * time.Second)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case n := <-f.listener.Notify:
			// nil after a reconnect; anything missed is picked up on next Open.
			if n == nil {
				logrus.Info("Change feed listener reconnected.")
				continue
			}
			if err := f.dispatch(n.Extra); err != nil {
				logrus.WithError(err).WithField("payload", n.Extra).Warn("Dropping malformed change notification.")
			}
		case <-ping.C:
			go func() {
				if err := f.listener.Ping(); err != nil {
					logrus.WithError(err).Warn("Change feed listener ping failed.")
				}
			}()
		}
	}
}

func (f *PostgresFeed) dispatch(payload string) error {
	c, err := parseChange(payload)
	if err != nil {
		return err
	}
	f.Publish(c)
	return nil
}

func (f *PostgresFeed) Close() error {
	return f.listener.Close()
}

func parseChange(payload string) (Change, error) {
	var c Change
	if err := json.Unmarshal([]byte(payload), &c); err != nil {
		return Change{}, fmt.Errorf("decode change: %w", err)
	}
	if c.EmployeeID == "" || c.Table == "" {
		return Change{}, fmt.Errorf("decode change: missing table or employee_id")
	}
	return c, nil
}

const notifyTriggersSQL = `
CREATE OR REPLACE FUNCTION notify_attendance_change() RETURNS trigger AS $$
DECLARE
	rec RECORD;
BEGIN
	IF TG_OP = 'DELETE' THEN rec := OLD; ELSE rec := NEW; END IF;
	PERFORM pg_notify('` + NotifyChannel + `', json_build_object(
		'table', TG_TABLE_NAME,
		'op', lower(TG_OP),
		'employee_id', rec.employee_id,
		'record_id', rec.id::text,
		'attendance_date', to_char(rec.attendance_date, 'YYYY-MM-DD'))::text);
	RETURN rec;
END;
$$ LANGUAGE plpgsql;

CREATE OR REPLACE FUNCTION notify_face_change() RETURNS trigger AS $$
DECLARE
	rec RECORD;
BEGIN
	IF TG_OP = 'DELETE' THEN rec := OLD; ELSE rec := NEW; END IF;
	PERFORM pg_notify('` + NotifyChannel + `', json_build_object(
		'table', TG_TABLE_NAME,
		'op', lower(TG_OP),
		'employee_id', rec.employee_id)::text);
	RETURN rec;
END;
$$ LANGUAGE plpgsql;

DROP TRIGGER IF EXISTS attendance_records_notify ON attendance_records;
CREATE TRIGGER attendance_records_notify AFTER INSERT OR UPDATE OR DELETE ON attendance_records
	FOR EACH ROW EXECUTE FUNCTION notify_attendance_change();

DROP TRIGGER IF EXISTS face_enrollments_notify ON face_enrollments;
CREATE TRIGGER face_enrollments_notify AFTER INSERT OR UPDATE OR DELETE ON face_enrollments
	FOR EACH ROW EXECUTE FUNCTION notify_face_change();
`

// InstallNotifyTriggers creates the triggers that feed NotifyChannel. Run it
// after AutoMigrate.
func InstallNotifyTriggers(db *gorm.DB) error {
	if err := db.Exec(notifyTriggersSQL).Error; err != nil {
		return fmt.Errorf("install notify triggers: %w", err)
	}
	return nil
}
