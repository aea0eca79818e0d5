package app

import (
	"github.com/fabricml/fabricml/fabric"

	"net/http"

	"github.com/googollee/go-socket.io"
	"github.com/gorilla/mux"
)

var SetupFuncs []func(*socketio.Server)
var Router = mux.NewRouter()

func init() {
	fileServer := http.FileServer(http.Dir("static/"))
	Router.PathPrefix("/static/").Handler(http.StripPrefix("/static/", fileServer))
	Router.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-cache")
		fileServer.ServeHTTP(w, r)
	})

	Router.HandleFunc("/platforms", func(w http.ResponseWriter, r *http.Request) {
		var platforms []fabric.Platform
		for _, name := range fabric.Platforms {
			platforms = append(platforms, fabric.PlatformByName(name))
		}
		fabric.JsonResponse(w, platforms)
	}).Methods("GET")

	Router.HandleFunc("/zoo-models", func(w http.ResponseWriter, r *http.Request) {
		fabric.JsonResponse(w, fabric.ZooModels)
	}).Methods("GET")
}
