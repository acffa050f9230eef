package orchestrator

import (
	"errors"
	"time"

	"github.com/ledgerlens/defi-insight/internal/common"
	"github.com/ledgerlens/defi-insight/internal/report"
)

type JobStatus string

const (
	StatusPending   JobStatus = "pending"
	StatusRunning   JobStatus = "running"
	StatusCompleted JobStatus = "completed"
	StatusFailed    JobStatus = "failed"
)

var (
	ErrJobNotFound = errors.New("job not found")
	ErrJobNotReady = errors.New("job has not completed")
	ErrJobFailed   = errors.New("job failed")
)

type NetworkProgress struct {
	Total     int            `json:"total"`
	Processed int            `json:"processed"`
	Protocols map[string]int `json:"protocols"`
	Error     string         `json:"error,omitempty"`
}

// JobState is a point-in-time copy of a job, safe to hand out.
type JobState struct {
	ID          string                      `json:"job_id"`
	Wallet      string                      `json:"wallet"`
	Networks    []string                    `json:"networks"`
	Status      JobStatus                   `json:"status"`
	Progress    map[string]*NetworkProgress `json:"progress"`
	Error       string                      `json:"error,omitempty"`
	ReportURI   string                      `json:"report_uri,omitempty"`
	CreatedAt   time.Time                   `json:"created_at"`
	StartedAt   *time.Time                  `json:"started_at,omitempty"`
	CompletedAt *time.Time                  `json:"completed_at,omitempty"`
}

func (s JobState) Done() bool {
	return s.Status == StatusCompleted || s.Status == StatusFailed
}

type JobResult struct {
	Rows      []report.Row          `json:"-"`
	CSV       []byte                `json:"-"`
	Analysis  common.WalletAnalysis `json:"analysis"`
	ReportURI string                `json:"report_uri,omitempty"`
}

type job struct {
	state  JobState
	result *JobResult
}

func (j *job) snapshot() JobState {
	s := j.state
	s.Networks = append([]string(nil), j.state.Networks...)
	s.Progress = make(map[string]*NetworkProgress, len(j.state.Progress))
	for network, p := range j.state.Progress {
		cp := *p
		cp.Protocols = make(map[string]int, len(p.Protocols))
		for protocol, n := range p.Protocols {
			cp.Protocols[protocol] = n
		}
		s.Progress[network] = &cp
	}
	return s
}
