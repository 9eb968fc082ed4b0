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

import "context"

type Command struct {
	Name string
	Args []string
}

// CommandResult holds the exit code and the combined stdout/stderr of a finished command.
type CommandResult struct {
	ExitCode int
	Output   []byte
}

// CommandRunner runs external tools (scan engine, archive tool, definitions updater).
// A non-zero exit code is not an error, only a command that could not run at all is.
//
//go:generate go run -mod=mod github.com/golang/mock/mockgen -destination=../../../mocks/mock_command_runner.go -package=mocks -source=CommandRunner.go
type CommandRunner interface {
	Run(ctx context.Context, command Command) (CommandResult, error)
}
