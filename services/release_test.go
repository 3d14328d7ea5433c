package services

import (
	"testing"
	"time"

	"cafe-backend/models"
)

func TestReleaseScheduler_Lifecycle(t *testing.T) {
	f := newFixture(t)
	s := f.engine.Releases()

	if err := s.Start("every now and then"); err == nil {
		t.Fatal("invalid cron spec accepted")
	}
	if err := s.Start("@every 1h"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := s.Start("@every 1h"); err == nil {
		t.Error("second Start should fail while running")
	}
	s.Stop()
	s.Stop()
	if err := s.Start("@every 1h"); err != nil {
		t.Fatalf("restart after Stop: %v", err)
	}
	s.Stop()
}

func TestReleaseScheduler_SkipsRemovedTable(t *testing.T) {
	f := newFixture(t)
	f.seat(f.t1, qty(f.tea, 1))
	res, err := f.engine.Pay(f.ctx, f.actor, PayRequest{TableID: f.t1, Tendered: dec("15")})
	if err != nil || !res.Success {
		t.Fatalf("Pay: %+v %v", res, err)
	}
	f.db.Model(&models.Table{}).Where("id = ?", f.t1).Update("is_deleted", true)

	f.clock.Advance(time.Minute)
	if n, err := f.engine.Releases().RunDue(f.ctx); err != nil || n != 1 {
		t.Fatalf("RunDue = %d (%v)", n, err)
	}
	var job models.ReleaseJob
	f.db.First(&job, "id = ?", res.ReleaseJobID)
	if job.Status != models.ReleaseSkipped || job.Reason != "table removed" {
		t.Errorf("job = %+v", job)
	}
	if n, _ := f.engine.Releases().RunDue(f.ctx); n != 0 {
		t.Errorf("finished job picked up again")
	}
}

func TestReleaseScheduler_RunDueLeavesFutureJobs(t *testing.T) {
	f := newFixture(t)
	pay := func(table uint) string {
		t.Helper()
		f.seat(table, qty(f.tea, 1))
		res, err := f.engine.Pay(f.ctx, f.actor, PayRequest{TableID: table, Tendered: dec("15")})
		if err != nil || !res.Success {
			t.Fatalf("Pay table %d: %+v %v", table, res, err)
		}
		return res.ReleaseJobID
	}
	status := func(id string) models.ReleaseJobStatus {
		t.Helper()
		var job models.ReleaseJob
		if err := f.db.First(&job, "id = ?", id).Error; err != nil {
			t.Fatalf("load job %s: %v", id, err)
		}
		return job.Status
	}

	first := pay(f.t1)
	f.clock.Advance(3 * time.Second)
	second := pay(f.t2)

	// first is due exactly now, second in three seconds.
	f.clock.Advance(2 * time.Second)
	releases := f.engine.Releases()
	if n, err := releases.RunDue(f.ctx); err != nil || n != 1 {
		t.Fatalf("RunDue = %d (%v), want 1", n, err)
	}
	if status(first) != models.ReleaseDone || status(second) != models.ReleasePending {
		t.Fatalf("statuses = %s/%s", status(first), status(second))
	}
	wantStatus(t, f, f.t1, models.TableAvailable)
	wantStatus(t, f, f.t2, models.TableOccupied)

	f.clock.Advance(3 * time.Second)
	if n, err := releases.RunDue(f.ctx); err != nil || n != 1 {
		t.Fatalf("RunDue = %d (%v), want 1", n, err)
	}
	wantStatus(t, f, f.t2, models.TableAvailable)
}
