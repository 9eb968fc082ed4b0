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

package awsutils

import (
	"net/http"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSession(t *testing.T) {
	t.Run("tuning comes from the config", func(t *testing.T) {
		awsSession, err := NewSession(SessionConfig{Region: "sa-east-1", MaxConnsPerHost: 16, MaxRetries: 5})
		require.NoError(t, err)

		assert.Equal(t, "sa-east-1", aws.StringValue(awsSession.Config.Region))
		assert.Equal(t, 5, aws.IntValue(awsSession.Config.MaxRetries))
		assert.True(t, aws.BoolValue(awsSession.Config.S3ForcePathStyle))

		transport, ok := awsSession.Config.HTTPClient.Transport.(*http.Transport)
		require.True(t, ok)
		assert.Equal(t, 16, transport.MaxConnsPerHost)
		assert.Equal(t, 16, transport.MaxIdleConnsPerHost)
		assert.Equal(t, 32, transport.MaxIdleConns)
	})

	t.Run("missing connection limit falls back to the default", func(t *testing.T) {
		awsSession, err := NewSession(SessionConfig{Region: "us-east-1"})
		require.NoError(t, err)

		transport, ok := awsSession.Config.HTTPClient.Transport.(*http.Transport)
		require.True(t, ok)
		assert.Equal(t, defaultMaxConnsPerHost, transport.MaxConnsPerHost)
	})

	t.Run("endpoint overrides every service", func(t *testing.T) {
		awsSession, err := NewSession(SessionConfig{Region: "us-east-1", Endpoint: "http://localhost:4566"})
		require.NoError(t, err)

		for _, service := range []string{"s3", "sqs", "sns"} {
			resolved, err := awsSession.Config.EndpointResolver.EndpointFor(service, "us-east-1")
			require.NoError(t, err)
			assert.Equal(t, "http://localhost:4566", resolved.URL, service)
			assert.Equal(t, "us-east-1", resolved.SigningRegion, service)
		}
	})
}
