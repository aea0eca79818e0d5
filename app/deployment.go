package app

import (
	"github.com/fabricml/fabricml/fabric"

	"fmt"
	"log"
	"net/http"
	"path/filepath"

	"github.com/gorilla/mux"
)

// Run executes the stage plan for this deployment, reporting progress
// through the job op. On success the artifact paths are saved in the
// workspace so they can be served later.
func (dep *DBDeployment) Run(stages []fabric.Stage, op *DeployJobOp) error {
	artifacts, err := fabric.RunDeployment(dep.Deployment, stages, fabric.RunHooks{
		OnStage: op.ChangeStage,
		LineFunc: op.AddLine,
		Stopped: op.IsStopped,
		Devices: Devices,
	})
	if err != nil {
		return err
	}
	return fabric.WriteJSONFile(filepath.Join(string(dep.Workspace), "artifacts.json"), artifacts)
}

func init() {
	Router.HandleFunc("/deployments", func(w http.ResponseWriter, r *http.Request) {
		fabric.JsonResponse(w, ListDeployments())
	}).Methods("GET")

	Router.HandleFunc("/deployments", func(w http.ResponseWriter, r *http.Request) {
		var request struct {
			Name string
			ModelID int
			Platform string
		}
		if err := fabric.ParseJsonRequest(w, r, &request); err != nil {
			return
		}
		if GetModel(request.ModelID) == nil {
			http.Error(w, "no such model", 404)
			return
		}
		if request.Platform == "" {
			request.Platform = fabric.GetPlatform().Name
		}
		dep := NewDeployment(request.Name, request.ModelID, request.Platform)
		fabric.JsonResponse(w, dep)
	}).Methods("POST")

	Router.HandleFunc("/deployments/{dep_id}", func(w http.ResponseWriter, r *http.Request) {
		depID := fabric.ParseInt(mux.Vars(r)["dep_id"])
		dep := GetDeployment(depID)
		if dep == nil {
			http.Error(w, "no such deployment", 404)
			return
		}
		fabric.JsonResponse(w, dep)
	}).Methods("GET")

	Router.HandleFunc("/deployments/{dep_id}", func(w http.ResponseWriter, r *http.Request) {
		depID := fabric.ParseInt(mux.Vars(r)["dep_id"])
		dep := GetDeployment(depID)
		if dep == nil {
			http.Error(w, "no such deployment", 404)
			return
		}
		dep.Delete()
	}).Methods("DELETE")

	// Kick off the pipeline asynchronously; the response is the job that
	// tracks it.
	Router.HandleFunc("/deployments/{dep_id}/deploy", func(w http.ResponseWriter, r *http.Request) {
		depID := fabric.ParseInt(mux.Vars(r)["dep_id"])
		dep := GetDeployment(depID)
		if dep == nil {
			http.Error(w, "no such deployment", 404)
			return
		}
		var params fabric.DeployParams
		if err := fabric.ParseJsonRequest(w, r, &params); err != nil {
			return
		}
		// remember the parameters so the UI can offer them as defaults
		SetKV(fmt.Sprintf("deploy-params/%d", dep.ID), string(fabric.JsonMarshal(params)))

		stages := fabric.DefaultStages(params)
		job := NewJob(fmt.Sprintf("Deploy %s", dep.Name), "deploy", "deploy", string(fabric.JsonMarshal(params)))
		op := &DeployJobOp{Job: job, Plan: stages}
		job.AttachOp(op)
		go func() {
			err := dep.Run(stages, op)
			if err == nil {
				job.SetDone("")
				return
			}
			log.Printf("[deploy %s] error: %v", dep.Name, err)
			job.SetDone(err.Error())
		}()
		fabric.JsonResponse(w, job)
	}).Methods("POST")

	Router.HandleFunc("/deployments/{dep_id}/artifacts", func(w http.ResponseWriter, r *http.Request) {
		depID := fabric.ParseInt(mux.Vars(r)["dep_id"])
		dep := GetDeployment(depID)
		if dep == nil {
			http.Error(w, "no such deployment", 404)
			return
		}
		var artifacts fabric.Artifacts
		if err := fabric.ReadJSONFile(filepath.Join(string(dep.Workspace), "artifacts.json"), &artifacts); err != nil {
			http.Error(w, "deployment has not completed", 404)
			return
		}
		fabric.JsonResponse(w, artifacts)
	}).Methods("GET")

	Router.HandleFunc("/deployments/{dep_id}/predictions", func(w http.ResponseWriter, r *http.Request) {
		depID := fabric.ParseInt(mux.Vars(r)["dep_id"])
		dep := GetDeployment(depID)
		if dep == nil {
			http.Error(w, "no such deployment", 404)
			return
		}
		http.ServeFile(w, r, dep.Workspace.Predictions())
	}).Methods("GET")

	Router.HandleFunc("/deployments/{dep_id}/annotated", func(w http.ResponseWriter, r *http.Request) {
		depID := fabric.ParseInt(mux.Vars(r)["dep_id"])
		dep := GetDeployment(depID)
		if dep == nil {
			http.Error(w, "no such deployment", 404)
			return
		}
		http.ServeFile(w, r, dep.Workspace.AnnotatedImage())
	}).Methods("GET")
}
