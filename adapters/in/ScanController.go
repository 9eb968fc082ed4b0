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

package in

import (
	"context"
	"errors"
	adapterentities "scan-sentinel/adapters/entities"
	"scan-sentinel/domain/entities"
	"scan-sentinel/logging"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

//go:generate go run -mod=mod github.com/golang/mock/mockgen -destination=../../mocks/mock_object_scanner.go -package=mocks -source=ScanController.go
type ObjectScanner interface {
	Process(ctx context.Context, event entities.ScanEvent) (entities.ScanVerdict, error)
}

type ScanController struct {
	validate *validator.Validate
	scanner  ObjectScanner
	logger   logging.Logger
}

func NewScanController(scanner ObjectScanner, logger logging.Logger) ScanController {
	return ScanController{scanner: scanner, logger: logger, validate: validator.New()}
}

// ScanObject scans one bucket object synchronously and answers with its output record,
// or with the failure record when the invocation failed.
func (s *ScanController) ScanObject(c *fiber.Ctx) error {
	response := adapterentities.ObjectScanResponse{}
	request := &adapterentities.ObjectScanRequest{}
	err := c.BodyParser(request)

	if err != nil {
		s.logger.Errorw("Could not parse request", "error", err)
		response.Error = err.Error()

		return c.Status(fiber.StatusBadRequest).JSON(response)
	}

	if err := s.validate.Struct(request); err != nil {
		s.logger.Errorw("Some field is missing", "error", err)
		response.Error = err.Error()

		return c.Status(fiber.StatusBadRequest).JSON(response)
	}

	response.RequestID = uuid.NewString()
	verdict, err := s.scanner.Process(c.UserContext(), request.ScanEvent(response.RequestID))

	if err != nil {
		s.logger.Errorw("failed to scan object", "bucket", request.Bucket, "key", request.Key, "request_id", response.RequestID, "error", err)

		var invocationErr *entities.InvocationError
		if errors.As(err, &invocationErr) {
			response.Result = adapterentities.MapToScanResponse(invocationErr.Record)
			response.Error = invocationErr.Record.Message
		} else {
			response.Error = "could not scan object"
		}

		return c.Status(fiber.StatusInternalServerError).JSON(response)
	}

	response.Result = adapterentities.MapToScanResponse(verdict)

	return c.Status(fiber.StatusOK).JSON(response)
}
