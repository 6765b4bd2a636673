// This file is part of fitbitd.
//
// fitbitd is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// fitbitd is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with fitbitd.  If not, see <http://www.gnu.org/licenses/>.

package syncpump

// Op is a SyncOp: a 7-byte tracker command plus an optional payload, queued
// by the server to run before the next POST of the current round-trip.
// Ops are consumed once.
type Op struct {
	Code    [7]byte
	Payload []byte
}

// opQueue is an owning, ordered collection of pending ops. The original C
// implementation threaded these through a singly linked list; an ops queue
// has no aliasing or ownership subtlety a slice doesn't already handle.
type opQueue struct {
	ops []Op
}

func (q *opQueue) push(op Op) {
	q.ops = append(q.ops, op)
}

// drain returns every queued op and empties the queue.
func (q *opQueue) drain() []Op {
	ops := q.ops
	q.ops = nil
	return ops
}
