package scheduler

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mitchellh/go-ps"
)

// ErrAlreadyRunning is returned when another scheduler process is found.
var ErrAlreadyRunning = errors.New("another alarm-scheduler process is running")

// processLister lists running processes; ps.Processes unless replaced in tests.
type processLister func() ([]ps.Process, error)

// ensureSingleInstance fails when a process with the same executable name as
// this one is running.
func ensureSingleInstance(list processLister) error {
	executable, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve executable: %w", err)
	}

	pids, err := findOtherInstances(list, filepath.Base(executable), os.Getpid())
	if err != nil {
		return err
	}

	if len(pids) > 0 {
		return fmt.Errorf("%w: pid %v", ErrAlreadyRunning, pids)
	}

	return nil
}

// findOtherInstances returns the pids of processes named processName, except selfPID.
func findOtherInstances(list processLister, processName string, selfPID int) ([]int, error) {
	processList, err := list()
	if err != nil {
		return nil, fmt.Errorf("list processes: %w", err)
	}

	var pids []int

	for _, process := range processList {
		if process.Pid() == selfPID {
			continue
		}

		if process.Executable() != processName {
			continue
		}

		pids = append(pids, process.Pid())
	}

	return pids, nil
}
