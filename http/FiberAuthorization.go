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

package http

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/keyauth/v2"
)

const (
	accessKeyParts           = 2
	sha256ExpectedOutputSize = 64
	requesterLocal           = "requester"
)

func invalidCredentials(index int) error {
	return fmt.Errorf("failed to parse access credentials at index %d. "+
		"Credentials should have format <alias>:<secret>, where secret must be prehashed with SHA256. "+
		"Recommended method is to generate a secret with openssl, like `openssl rand -hex 32`, then hash it with sha256sum", index)
}

// PrepareAuthorizationKeys maps every alias to its decoded SHA256 secret.
func PrepareAuthorizationKeys(authorizationKeys []string) (map[string][]byte, error) {
	keys := make(map[string][]byte, len(authorizationKeys))

	for index, access := range authorizationKeys {
		alias, secret, found := strings.Cut(access, ":")
		if !found || alias == "" || strings.Count(access, ":") != accessKeyParts-1 {
			return nil, invalidCredentials(index)
		}

		if len(secret) != sha256ExpectedOutputSize {
			return nil, invalidCredentials(index)
		}

		decodedValue, err := hex.DecodeString(secret)
		if err != nil {
			return nil, invalidCredentials(index)
		}

		keys[alias] = decodedValue
	}

	return keys, nil
}

// FiberAuthFilter skips authentication for health checks and metrics.
func FiberAuthFilter(ctx *fiber.Ctx) bool {
	return !strings.HasPrefix(ctx.OriginalURL(), currentVersion) &&
		!strings.HasPrefix(ctx.OriginalURL(), debugPath)
}

func FiberAuthErrorHandler(ctx *fiber.Ctx, err error) error {
	response := struct {
		Error string `json:"error"`
	}{
		Error: err.Error(),
	}

	return ctx.Status(fiber.StatusUnauthorized).JSON(response)
}

func FiberAuthValidator(authorizationKeys map[string][]byte) func(c *fiber.Ctx, key string) (bool, error) {
	return func(c *fiber.Ctx, key string) (bool, error) {
		const equalContents = 1

		hashedKey := sha256.Sum256([]byte(key))

		for requester, secret := range authorizationKeys {
			if subtle.ConstantTimeCompare(hashedKey[:], secret) == equalContents {
				c.Locals(requesterLocal, requester)
				return true, nil
			}
		}

		return false, keyauth.ErrMissingOrMalformedAPIKey
	}
}
