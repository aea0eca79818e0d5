package main

import (
	"github.com/fabricml/fabricml/app"

	_ "github.com/fabricml/fabricml/ops"

	"github.com/googollee/go-socket.io"

	"flag"
	"log"
	"net"
	"net/http"
	"strconv"
	"strings"
)

func main() {
	addr := flag.String("addr", ":8080", "bind address")
	coordinatorURL := flag.String("url", "http://127.0.0.1:PORT", "coordinator URL")
	initdb := flag.Bool("initdb", false, "initialize the database before starting up")
	dataDir := flag.String("data-dir", "data", "directory for workspaces and uploaded models")
	devices := flag.String("devices", "fpga0", "comma-separated FPGA device names to schedule on")
	instanceID := flag.String("instance", "", "optional instance ID")
	flag.Parse()

	tcpAddr, err := net.ResolveTCPAddr("tcp", *addr)
	if err != nil {
		panic(err)
	}

	app.Config.CoordinatorURL = strings.ReplaceAll(*coordinatorURL, "PORT", strconv.Itoa(tcpAddr.Port))
	app.Config.DataDir = *dataDir
	app.Config.InstanceID = *instanceID

	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	app.InitDB(*initdb)
	app.InitDevices(strings.Split(*devices, ","))

	server, err := socketio.NewServer(nil)
	if err != nil {
		panic(err)
	}
	server.OnConnect("/", func(s socketio.Conn) error {
		return nil
	})
	for _, f := range app.SetupFuncs {
		f(server)
	}

	go server.Serve()
	defer server.Close()
	http.Handle("/socket.io/", server)
	http.Handle("/", app.Router)
	log.Printf("starting on %s", *addr)
	if err := http.ListenAndServe(*addr, nil); err != nil {
		panic(err)
	}
}
