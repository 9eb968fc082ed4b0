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

package entities

import "sync/atomic"

// ScanRequest is what flows through the stages: the event plus the queue message it came from.
type ScanRequest struct {
	Event ScanEvent
	Ack   *MessageAck
}

// MessageAck tracks the records of a single queue message. The message is acknowledged once
// every record finished and none of them failed, so a failed record is redelivered with its siblings.
type MessageAck struct {
	ReceiptHandle string
	pending       atomic.Int32
	failed        atomic.Bool
}

func NewMessageAck(receiptHandle string, records int) *MessageAck {
	ack := &MessageAck{ReceiptHandle: receiptHandle}
	ack.pending.Store(int32(records))

	return ack
}

// Done records the outcome of one record and reports whether the message can be deleted now.
func (m *MessageAck) Done(failed bool) bool {
	if failed {
		m.failed.Store(true)
	}

	return m.pending.Add(-1) == 0 && !m.failed.Load()
}
