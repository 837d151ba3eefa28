package application

import (
	"time"

	"github.com/bnema/boxtoplay-keeper/internal/domain"
)

type InfoState string

const (
	InfoNotLoaded InfoState = "not_loaded"
	InfoEmpty     InfoState = "empty"
	InfoReady     InfoState = "ready"
)

type AccountInfo struct {
	Index       int
	Email       string
	ServerID    string
	Active      bool
	HasSession  bool
	Fingerprint string
	Health      *domain.AccountHealth
}

type Info struct {
	State        InfoState
	KeeperState  KeeperState
	DocumentName string
	ActiveEmail  string
	ActiveIndex  *int
	ServerID     string
	DNS          string
	LastSyncTime time.Time
	LoadError    string
	Accounts     []AccountInfo
	LastCycle    *CycleReport
}

type TargetStatus struct {
	DNS    string
	Status domain.ServerStatus
}
