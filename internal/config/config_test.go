package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.HTTPAddr != "0.0.0.0:8080" {
		t.Fatalf("http addr = %q", cfg.HTTPAddr)
	}
	if cfg.ShutdownTimeout != 10*time.Second {
		t.Fatalf("shutdown timeout = %v", cfg.ShutdownTimeout)
	}
	if cfg.Scheduling.OpenTime != "09:00" || cfg.Scheduling.CloseTime != "17:00" {
		t.Fatalf("business hours = %q-%q", cfg.Scheduling.OpenTime, cfg.Scheduling.CloseTime)
	}
	if cfg.Scheduling.SlotStepMinutes != 30 {
		t.Fatalf("slot step = %d", cfg.Scheduling.SlotStepMinutes)
	}
	if got := cfg.Scheduling.DefaultDurations["recalibration"]; got != 30 {
		t.Fatalf("recalibration duration = %d", got)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("OPSCRM_HTTP_ADDR", "127.0.0.1:9000")
	t.Setenv("OPSCRM_SCHEDULING_OPEN_TIME", "08:00")
	t.Setenv("OPSCRM_SCHEDULING_SLOT_STEP_MINUTES", "15")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.HTTPAddr != "127.0.0.1:9000" {
		t.Fatalf("http addr = %q", cfg.HTTPAddr)
	}
	if cfg.Scheduling.OpenTime != "08:00" {
		t.Fatalf("open time = %q", cfg.Scheduling.OpenTime)
	}
	if cfg.Scheduling.SlotStepMinutes != 15 {
		t.Fatalf("slot step = %d", cfg.Scheduling.SlotStepMinutes)
	}
}

func TestLoadRejectsInvertedBusinessHours(t *testing.T) {
	t.Setenv("OPSCRM_SCHEDULING_OPEN_TIME", "18:00")
	t.Setenv("OPSCRM_SCHEDULING_CLOSE_TIME", "09:00")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error for inverted business hours")
	}
}

func TestLoadRejectsBadTimeZone(t *testing.T) {
	t.Setenv("OPSCRM_SCHEDULING_TIME_ZONE", "Not/AZone")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error for unknown time zone")
	}
}
