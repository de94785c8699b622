// nightcam - on-camera meteor detection for low-power embedded imagers
//  Copyright (C) 2024, The Night Watch Project
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

package detector

// meteorEvent is the JSON body posted to /event for each published
// detection.
type meteorEvent struct {
	CameraID     string          `json:"camera_id"`
	Type         string          `json:"type"`
	TimestampMS  uint64          `json:"timestamp_ms"`
	BlockStartMS uint64          `json:"block_start_ms"`
	Candidate    meteorCandidate `json:"candidate"`
}

type meteorCandidate struct {
	Rho      int32  `json:"rho"`
	Theta    uint16 `json:"theta"`
	X1       int32  `json:"x1"`
	Y1       int32  `json:"y1"`
	X2       int32  `json:"x2"`
	Y2       int32  `json:"y2"`
	LengthPx uint32 `json:"length_px"`
	Votes    uint32 `json:"votes"`
}
