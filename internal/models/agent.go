package models

import (
	"time"

	"github.com/google/uuid"
)

const DefaultAgentType = "swarm"

type AgentRequest struct {
	Task      string `json:"task"`
	AgentType string `json:"agentType"`
}

type AgentResponse struct {
	Result    string `json:"result"`
	AgentType string `json:"agentType"`
	Task      string `json:"task"`
}

type RunStatus string

const (
	RunQueued    RunStatus = "queued"
	RunRunning   RunStatus = "running"
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
)

// AgentRun is an asynchronous agent invocation tracked in Redis.
type AgentRun struct {
	ID         uuid.UUID  `json:"runId"`
	Status     RunStatus  `json:"status"`
	AgentType  string     `json:"agentType"`
	Task       string     `json:"task"`
	Result     string     `json:"result,omitempty"`
	Error      string     `json:"error,omitempty"`
	Details    string     `json:"details,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
}
