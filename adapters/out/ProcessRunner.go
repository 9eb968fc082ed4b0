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

package out

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"scan-sentinel/domain/ports/out"
	"scan-sentinel/logging"
)

// ProcessRunner runs the scan engine, archive and update tools as child processes.
type ProcessRunner struct {
	logger logging.Logger
}

func NewProcessRunner(logger logging.Logger) *ProcessRunner {
	return &ProcessRunner{logger: logger}
}

func (p *ProcessRunner) Run(ctx context.Context, command out.Command) (out.CommandResult, error) {
	p.logger.Debugw("running command", "command", command.Name, "args", command.Args)

	cmd := exec.CommandContext(ctx, command.Name, command.Args...)
	output, err := cmd.CombinedOutput()

	if ctx.Err() != nil {
		return out.CommandResult{Output: output}, fmt.Errorf("%s interrupted. %w", command.Name, ctx.Err())
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return out.CommandResult{ExitCode: exitErr.ExitCode(), Output: output}, nil
		}

		return out.CommandResult{Output: output}, fmt.Errorf("failed to run %s. %w", command.Name, err)
	}

	return out.CommandResult{ExitCode: 0, Output: output}, nil
}
