package app

import (
	"github.com/fabricml/fabricml/fabric"

	"os"
	"path/filepath"
	"strconv"
)

type DBDeployment struct {fabric.Deployment}

const DeploymentQuery = "SELECT d.id, d.name, d.platform, d.workspace, m.id, m.name, m.type, m.graph, m.weights FROM deployments AS d LEFT JOIN models AS m ON d.model_id = m.id"

func deploymentListHelper(rows *Rows) []*DBDeployment {
	deployments := []*DBDeployment{}
	for rows.Next() {
		var dep DBDeployment
		var platform, workspace string
		rows.Scan(&dep.ID, &dep.Name, &platform, &workspace, &dep.Model.ID, &dep.Model.Name, &dep.Model.Type, &dep.Model.Graph, &dep.Model.Weights)
		dep.Platform = fabric.PlatformByName(platform)
		dep.Workspace = fabric.Workspace(workspace)
		deployments = append(deployments, &dep)
	}
	return deployments
}

func ListDeployments() []*DBDeployment {
	rows := db.Query(DeploymentQuery)
	return deploymentListHelper(rows)
}

func GetDeployment(id int) *DBDeployment {
	rows := db.Query(DeploymentQuery + " WHERE d.id = ?", id)
	deployments := deploymentListHelper(rows)
	if len(deployments) == 1 {
		return deployments[0]
	} else {
		return nil
	}
}

func NewDeployment(name string, modelID int, platform string) *DBDeployment {
	res := db.Exec(
		"INSERT INTO deployments (name, model_id, platform, workspace) VALUES (?, ?, ?, '')",
		name, modelID, platform,
	)
	id := res.LastInsertId()
	// the workspace directory is derived from the assigned ID
	ws := filepath.Join(Config.DataDir, "deployments", strconv.Itoa(id))
	db.Exec("UPDATE deployments SET workspace = ? WHERE id = ?", ws, id)
	return GetDeployment(id)
}

func (dep *DBDeployment) Delete() {
	if dep.Workspace != "" {
		os.RemoveAll(string(dep.Workspace))
	}
	db.Exec("DELETE FROM deployments WHERE id = ?", dep.ID)
}
