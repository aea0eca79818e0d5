package app

import (
	"github.com/fabricml/fabricml/fabric"

	"os"
	"path/filepath"
	"strings"
)

type DBModel struct {fabric.Model}

const ModelQuery = "SELECT id, name, type, graph, weights FROM models"

func modelListHelper(rows *Rows) []*DBModel {
	models := []*DBModel{}
	for rows.Next() {
		var m DBModel
		rows.Scan(&m.ID, &m.Name, &m.Type, &m.Graph, &m.Weights)
		models = append(models, &m)
	}
	return models
}

func ListModels() []*DBModel {
	rows := db.Query(ModelQuery)
	return modelListHelper(rows)
}

func GetModel(id int) *DBModel {
	rows := db.Query(ModelQuery + " WHERE id = ?", id)
	models := modelListHelper(rows)
	if len(models) == 1 {
		return models[0]
	} else {
		return nil
	}
}

func NewModel(name string, t string, graph string, weights string) *DBModel {
	res := db.Exec(
		"INSERT INTO models (name, type, graph, weights) VALUES (?, ?, ?, ?)",
		name, t, graph, weights,
	)
	return GetModel(res.LastInsertId())
}

func (m *DBModel) Delete() {
	db.Exec("DELETE FROM models WHERE id = ?", m.ID)

	// uploaded files live in a per-model directory under our data dir,
	// but zoo models reference the suite installation and must stay
	uploadRoot := filepath.Join(Config.DataDir, "models") + string(filepath.Separator)
	dir := filepath.Dir(filepath.Clean(m.Graph))
	if m.Type == "custom" && strings.HasPrefix(dir, uploadRoot) {
		os.RemoveAll(dir)
	}
}
