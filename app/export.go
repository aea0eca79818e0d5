package app

import (
	"github.com/fabricml/fabricml/fabric"

	"archive/zip"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gorilla/mux"
)

func getExportFilename(name string) string {
	// try name.zip, name-0.zip, name-1.zip, etc. until we find one that doesn't already exist
	outFname := filepath.Join("exports", name+".zip")
	for counter := 0; fabric.FileExists(outFname); counter++ {
		outFname = filepath.Join("exports", fmt.Sprintf("%s-%d.zip", name, counter))
	}
	return outFname
}

// Export zips up the deployment workspace (rewritten graphs, quantization
// outputs, instruction stream, predictions) so everything a run produced can
// be pulled off the coordinator in one download.
func (dep *DBDeployment) Export(outFname string, op *fabric.TailJobOp) error {
	if dep.Workspace == "" {
		return fmt.Errorf("deployment has no workspace")
	}
	log.Printf("[export] beginning export of %s to %s", dep.Name, outFname)

	file, err := os.Create(outFname)
	if err != nil {
		return err
	}
	defer file.Close()
	zipWriter := zip.NewWriter(file)

	root := string(dep.Workspace)
	err = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		relpath, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		w, err := zipWriter.Create(relpath)
		if err != nil {
			return err
		}
		src, err := os.Open(path)
		if err != nil {
			return err
		}
		defer src.Close()
		if _, err := io.Copy(w, src); err != nil {
			return err
		}
		op.Update([]string{fmt.Sprintf("added %s", relpath)})
		return nil
	})
	if err != nil {
		return err
	}
	return zipWriter.Close()
}

func init() {
	Router.HandleFunc("/deployments/{dep_id}/export", func(w http.ResponseWriter, r *http.Request) {
		depID := fabric.ParseInt(mux.Vars(r)["dep_id"])
		dep := GetDeployment(depID)
		if dep == nil {
			http.Error(w, "no such deployment", 404)
			return
		}

		os.Mkdir("exports", 0755)
		outFname := getExportFilename(dep.Name)
		job := NewJob(fmt.Sprintf("Export %s", dep.Name), "export", "export", outFname)
		op := &fabric.TailJobOp{}
		job.AttachOp(op)

		go func() {
			err := dep.Export(outFname, op)
			job.UpdateState(op.Encode())
			if err == nil {
				log.Printf("[export] export of %s succeeded", dep.Name)
				job.SetDone("")
			} else {
				log.Printf("[export] export of %s failed: %v", dep.Name, err)
				job.SetDone(err.Error())
			}
		}()
		fabric.JsonResponse(w, job)
	}).Methods("POST")

	fileServer := http.FileServer(http.Dir("exports/"))
	Router.PathPrefix("/exports/").Handler(http.StripPrefix("/exports/", fileServer))
}
