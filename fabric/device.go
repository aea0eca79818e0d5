package fabric

import (
	"sync"
)

// DeviceSet tracks exclusive ownership of the FPGA devices on this machine.
// The quantize/compile/cut stages are CPU-only; only runtime execution
// holds a device. Waiters queue on a cond until a device frees up.
type DeviceSet struct {
	mu sync.Mutex
	cond *sync.Cond
	// device name -> available
	devices map[string]bool
}

func NewDeviceSet(names ...string) *DeviceSet {
	ds := &DeviceSet{
		devices: make(map[string]bool),
	}
	ds.cond = sync.NewCond(&ds.mu)
	for _, name := range names {
		ds.devices[name] = true
	}
	return ds
}

// Acquire blocks until a device is available and returns its name.
func (ds *DeviceSet) Acquire() string {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	for {
		for name, ok := range ds.devices {
			if ok {
				ds.devices[name] = false
				return name
			}
		}
		ds.cond.Wait()
	}
}

func (ds *DeviceSet) Release(name string) {
	ds.mu.Lock()
	ds.devices[name] = true
	ds.mu.Unlock()
	ds.cond.Broadcast()
}

// State reports availability per device, for status display.
func (ds *DeviceSet) State() map[string]bool {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	state := make(map[string]bool, len(ds.devices))
	for name, ok := range ds.devices {
		state[name] = ok
	}
	return state
}