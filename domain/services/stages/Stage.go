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

package stages

import (
	"context"
	"fmt"
	"scan-sentinel/domain/entities"
	"scan-sentinel/logging"
)

type Cleanup[T any] struct {
	Request *T
	Error   error
}

// Stage feeds every input to its handler. Workers share the input, output and cleanup channels,
// so inputs are handled concurrently but each one by a single worker.
type Stage[T, V any] struct {
	handler      entities.Handler[T, V]
	inputChannel <-chan *T
	workers      int
	logger       logging.Logger
	output       chan *V
	cleanup      chan *Cleanup[T]
}

func NewStage[T any, V any](handler entities.Handler[T, V], inputChannel chan *T, cleanupChannel chan *Cleanup[T], workers int, logger logging.Logger) Stage[T, V] {
	output := make(chan *V)

	if workers < 1 {
		workers = 1
	}

	return Stage[T, V]{
		handler:      handler,
		inputChannel: inputChannel,
		workers:      workers,
		logger:       logger,
		output:       output,
		cleanup:      cleanupChannel,
	}
}

func (s *Stage[T, V]) Output() chan *V {
	return s.output
}

func (s *Stage[T, V]) Process(ctx context.Context) {
	s.logger.Infow("Start of stage")
	s.logger.Infow("Initializing handler", "handler", s.handler.Name(), "workers", s.workers)

	for i := 0; i < s.workers; i++ {
		go s.doProcess(ctx)
	}
}

func (s *Stage[T, V]) doProcess(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			s.logger.Infow("End of stage")
			return
		case input := <-s.inputChannel:
			s.safeHandle(ctx, input)
		}
	}
}

func (s *Stage[T, V]) safeHandle(ctx context.Context, input *T) {
	defer func() {
		if r := recover(); r != nil {
			panicErr := fmt.Errorf("%v", r)
			s.logger.Errorw("Panic catch during handler execution", "err", panicErr)
			s.sendCleanup(ctx, &Cleanup[T]{Request: input, Error: panicErr})
		}
	}()

	writer := entities.NewOutputWriter[V](s.output)

	err := s.handler.Handle(ctx, input, writer)
	if err != nil {
		s.sendCleanup(ctx, &Cleanup[T]{Request: input, Error: err})
		return
	}
}

// A stage without a cleanup channel drops failed inputs after logging them.
func (s *Stage[T, V]) sendCleanup(ctx context.Context, cleanup *Cleanup[T]) {
	if s.cleanup == nil {
		s.logger.Errorw("Dropping failed input, stage has no cleanup", "handler", s.handler.Name(), "error", cleanup.Error)
		return
	}

	select {
	case <-ctx.Done():
	case s.cleanup <- cleanup:
	}
}
