// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package transcription

import "errors"

var (
	// ErrEmptyAudioPath is returned when no audio path is provided.
	ErrEmptyAudioPath = errors.New("audio path required")

	// ErrTranscriptionFailed wraps the final error after retries are
	// exhausted or a permanent server error occurs.
	ErrTranscriptionFailed = errors.New("transcription failed")
)
