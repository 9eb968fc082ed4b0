/*
 *    Copyright 2023 iFood
 *
 *    Licensed under the Apache License, Version 2.0 (the "License");
 *    you may not use this file except in compliance with the License.
 *    You may obtain a copy of the License at
 *
 *      http://www.apache.org/licenses/LICENSE-2.0
 *
 *    Unless required by applicable law or agreed to in writing, software
 *    distributed under the License is distributed on an "AS IS" BASIS,
 *    WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 *    See the License for the specific language governing permissions and
 *    limitations under the License.
 */

package scan

import (
	"context"
	"fmt"
	"scan-sentinel/domain/entities"
	"scan-sentinel/domain/ports/out"
	"scan-sentinel/logging"
	"strconv"

	"github.com/uber-go/tally/v4"
)

const (
	exitClean    = 0
	exitInfected = 1
)

// Outcome is the engine verdict together with its captured output.
type Outcome struct {
	Status  entities.ObjectStatus
	Message string
}

// Executor runs the scan engine over the payload directory of a workspace.
type Executor struct {
	runner       out.CommandRunner
	command      string
	maxBytes     int64
	metricsScope tally.Scope
	logger       logging.Logger
}

func NewExecutor(runner out.CommandRunner, command string, maxBytes int64, metricsScope tally.Scope, logger logging.Logger) *Executor {
	return &Executor{runner: runner, command: command, maxBytes: maxBytes, metricsScope: metricsScope, logger: logger}
}

func (e *Executor) Scan(ctx context.Context, ws entities.Workspace, definitionsDir string) (Outcome, error) {
	limit := strconv.FormatInt(e.maxBytes, 10)
	command := out.Command{
		Name: e.command,
		Args: []string{
			"-v",
			"--stdout",
			"--max-filesize=" + limit,
			"--max-scansize=" + limit,
			"--database=" + definitionsDir,
			"--tempdir=" + ws.TempDir,
			"-r",
			ws.PayloadDir,
		},
	}

	stopwatch := e.metricsScope.Timer("scan_duration").Start()
	result, err := e.runner.Run(ctx, command)
	stopwatch.Stop()

	if err != nil {
		return Outcome{}, entities.NewScanError(entities.EngineError, fmt.Sprintf("failed to run %s", e.command), err)
	}

	output := string(result.Output)

	switch result.ExitCode {
	case exitClean:
		return Outcome{Status: entities.StatusClean, Message: output}, nil
	case exitInfected:
		e.logger.Warnw("infected payload found", "request_id", ws.ID)
		return Outcome{Status: entities.StatusInfected, Message: output}, nil
	default:
		return Outcome{}, entities.NewScanError(entities.EngineError,
			fmt.Sprintf("ClamAV exited with unexpected code: %d.%s", result.ExitCode, output), nil)
	}
}
