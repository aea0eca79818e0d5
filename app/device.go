package app

import (
	"github.com/fabricml/fabricml/fabric"

	"net/http"
)

// Devices guards exclusive access to the FPGA cards this coordinator manages.
// Set by main before serving.
var Devices *fabric.DeviceSet

func InitDevices(names []string) {
	Devices = fabric.NewDeviceSet(names...)
}

func init() {
	Router.HandleFunc("/devices", func(w http.ResponseWriter, r *http.Request) {
		fabric.JsonResponse(w, Devices.State())
	}).Methods("GET")
}
