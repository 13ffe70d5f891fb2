/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package updater

import (
	"context"

	"github.com/looplab/fsm"
)

// Pipeline states, in execution order.
const (
	StatePending     = "pending"
	StateStage       = "stage"
	StateTransfer    = "transfer"
	StateVerify      = "verify"
	StateMount       = "mount"
	StateReplace     = "replace"
	StateUnmountSync = "unmount_sync"
	StateReboot      = "reboot"
	StateDone        = "done"
	StateFailed      = "failed"
)

const (
	// EventAdvance moves a pipeline to its next phase.
	EventAdvance = "advance"
	// EventFail ends a pipeline from any non-terminal phase.
	EventFail = "fail"
)

// pipelineOrder lists the states an update walks through on success.
//
//nolint:gochecknoglobals // fixed transition table
var pipelineOrder = []string{
	StatePending,
	StateStage,
	StateTransfer,
	StateVerify,
	StateMount,
	StateReplace,
	StateUnmountSync,
	StateReboot,
	StateDone,
}

func pipelineEvents() fsm.Events {
	events := make(fsm.Events, 0, len(pipelineOrder))

	for i := 0; i+1 < len(pipelineOrder); i++ {
		events = append(events, fsm.EventDesc{
			Name: EventAdvance,
			Src:  []string{pipelineOrder[i]},
			Dst:  pipelineOrder[i+1],
		})
	}

	events = append(events, fsm.EventDesc{
		Name: EventFail,
		Src:  pipelineOrder[:len(pipelineOrder)-1],
		Dst:  StateFailed,
	})

	return events
}

// newPipelineFSM builds a device state machine. onEnter runs after every
// transition with the state left and the state entered.
func newPipelineFSM(onEnter func(ctx context.Context, from, to string)) *fsm.FSM {
	return fsm.NewFSM(StatePending, pipelineEvents(), fsm.Callbacks{
		"enter_state": func(ctx context.Context, e *fsm.Event) {
			onEnter(ctx, e.Src, e.Dst)
		},
	})
}
