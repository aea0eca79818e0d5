package app

import (
	"github.com/fabricml/fabricml/fabric"

	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"

	gouuid "github.com/google/uuid"
	"github.com/gorilla/mux"
)

// saveFormFile writes one part of a multipart upload to dstDir under a
// fixed name, keeping the uploaded file's extension.
func saveFormFile(r *http.Request, field string, dstDir string, base string) (string, error) {
	file, fh, err := r.FormFile(field)
	if err != nil {
		return "", fmt.Errorf("error processing upload: %v", err)
	}
	defer file.Close()
	dstPath := filepath.Join(dstDir, base+filepath.Ext(fh.Filename))
	dst, err := os.Create(dstPath)
	if err != nil {
		return "", err
	}
	defer dst.Close()
	if _, err := io.Copy(dst, file); err != nil {
		return "", err
	}
	return dstPath, nil
}

func init() {
	Router.HandleFunc("/models", func(w http.ResponseWriter, r *http.Request) {
		fabric.JsonResponse(w, ListModels())
	}).Methods("GET")

	// Register a custom model from a multipart upload with the network
	// description under "graph" and the weights under "weights".
	Router.HandleFunc("/models", func(w http.ResponseWriter, r *http.Request) {
		name := r.PostFormValue("name")
		if name == "" {
			http.Error(w, "missing model name", 400)
			return
		}
		// stage the files in a fresh directory so concurrent uploads
		// and equal names cannot collide
		dir := filepath.Join(Config.DataDir, "models", gouuid.New().String())
		if err := os.MkdirAll(dir, 0755); err != nil {
			http.Error(w, err.Error(), 400)
			return
		}
		model, err := func() (*DBModel, error) {
			graph, err := saveFormFile(r, "graph", dir, "deploy")
			if err != nil {
				return nil, err
			}
			weights, err := saveFormFile(r, "weights", dir, name)
			if err != nil {
				return nil, err
			}
			// reject weights files protobuf cannot walk before anything
			// references the model
			if _, err := fabric.InspectWeights(weights); err != nil {
				return nil, fmt.Errorf("unreadable weights file: %v", err)
			}
			return NewModel(name, "custom", graph, weights), nil
		}()
		if err != nil {
			os.RemoveAll(dir)
			log.Printf("[upload %s] error: %v", r.URL.Path, err)
			http.Error(w, err.Error(), 400)
			return
		}
		fabric.JsonResponse(w, model)
	}).Methods("POST")

	Router.HandleFunc("/models/{model_id}", func(w http.ResponseWriter, r *http.Request) {
		modelID := fabric.ParseInt(mux.Vars(r)["model_id"])
		model := GetModel(modelID)
		if model == nil {
			http.Error(w, "no such model", 404)
			return
		}
		fabric.JsonResponse(w, model)
	}).Methods("GET")

	Router.HandleFunc("/models/{model_id}", func(w http.ResponseWriter, r *http.Request) {
		modelID := fabric.ParseInt(mux.Vars(r)["model_id"])
		model := GetModel(modelID)
		if model == nil {
			http.Error(w, "no such model", 404)
			return
		}
		model.Delete()
	}).Methods("DELETE")

	Router.HandleFunc("/models/{model_id}/net", func(w http.ResponseWriter, r *http.Request) {
		modelID := fabric.ParseInt(mux.Vars(r)["model_id"])
		model := GetModel(modelID)
		if model == nil {
			http.Error(w, "no such model", 404)
			return
		}
		net, err := fabric.ParseNetFile(model.Graph)
		if err != nil {
			http.Error(w, err.Error(), 400)
			return
		}
		fabric.JsonResponse(w, net)
	}).Methods("GET")

	Router.HandleFunc("/models/{model_id}/inspect", func(w http.ResponseWriter, r *http.Request) {
		modelID := fabric.ParseInt(mux.Vars(r)["model_id"])
		model := GetModel(modelID)
		if model == nil {
			http.Error(w, "no such model", 404)
			return
		}
		info, err := fabric.InspectWeights(model.Weights)
		if err != nil {
			http.Error(w, err.Error(), 400)
			return
		}
		fabric.JsonResponse(w, info)
	}).Methods("GET")

	// Render the network as SVG for display.
	Router.HandleFunc("/models/{model_id}/render", func(w http.ResponseWriter, r *http.Request) {
		modelID := fabric.ParseInt(mux.Vars(r)["model_id"])
		model := GetModel(modelID)
		if model == nil {
			http.Error(w, "no such model", 404)
			return
		}
		net, err := fabric.ParseNetFile(model.Graph)
		if err != nil {
			http.Error(w, err.Error(), 400)
			return
		}
		w.Header().Set("Content-Type", "image/svg+xml")
		fabric.NetSVG(net, w)
	}).Methods("GET")
}
