/*
	Copyright 2024 StepCounting Authors

	Licensed under the Apache License, Version 2.0 (the "License");
	you may not use this file except in compliance with the License.
	You may obtain a copy of the License at

	https://www.apache.org/licenses/LICENSE-2.0

	Unless required by applicable law or agreed to in writing, software
	distributed under the License is distributed on an "AS IS" BASIS,
	WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
	See the License for the specific language governing permissions and
	limitations under the License.
*/

package stepcounter

import (
	"github.com/stepcounting/sdk-golang/inspect"
	"github.com/stepcounting/sdk-golang/stepcounter/lifecycle"
)

func (session *SessionImpl) Inspect() *inspect.SessionInspectResult {
	result := &inspect.SessionInspectResult{
		SessionId: session.Id,
		Name:      NAME,
		Version:   VERSION,
		Bridge:    session.bridge.Name(),
		Platform:  session.bridge.Platform().String(),
		Closed:    session.closed.Load(),
	}

	// Capability
	if last := session.prober.Last(); last != nil {
		result.Capability = &inspect.SessionInspectCapability{
			Supported: last.Supported,
			Granted:   last.Granted,
		}
	}

	// Subscription
	snapshot := session.manager.snapshot()
	result.Subscription = &inspect.SessionInspectSubscription{
		State:                 snapshot.state.String(),
		UpstreamRegistrations: snapshot.registrations,
		ListenerCount:         session.ListenerCount(),
	}
	if snapshot.state == Active {
		result.Subscription.From = snapshot.from.UnixMilli()
	}

	// Listeners
	for _, sub := range session.bus.Subscriptions(EventName) {
		result.Listeners = append(result.Listeners, &inspect.SessionInspectListener{
			Id:      sub.Id(),
			Channel: sub.Channel(),
		})
	}

	// Background
	result.Background = &inspect.SessionInspectBackground{
		Enabled: session.controller != nil,
		State:   lifecycle.Foreground.String(),
	}
	if session.controller != nil {
		bg := session.controller.Snapshot()
		result.Background.State = bg.State.String()
		result.Background.Running = bg.Running
		result.Background.Starts = bg.Starts
		result.Background.Stops = bg.Stops
		result.Background.Failures = bg.Failures
		result.Background.NotificationId = session.options.Notification.ID
		result.Background.NotificationChannel = session.options.Notification.ChannelID
	}

	return result
}
