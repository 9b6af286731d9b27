// Package buffer provides the bounded ring used at producer/loop boundaries.
//
// Ring[T] is a fixed-capacity single-producer/single-consumer queue. The
// producer side (audio capture callbacks, socket readers, button edges)
// calls Push, which never blocks: a full ring overwrites its oldest element
// and counts the loss in Dropped. The consumer side is the device loop,
// which drains with TryPop once per tick.
//
// Example usage:
//
//	ring := buffer.NewRing[pcm.Chunk](8)
//
//	// Producer side.
//	_ = ring.Push(chunk)
//
//	// Loop side.
//	for {
//	    c, ok := ring.TryPop()
//	    if !ok {
//	        break
//	    }
//	    handle(c)
//	}
//
// Close stops further pushes; buffered elements stay poppable so the loop
// can drain what arrived before shutdown.
package buffer
