package handlers

import (
	"net/http"

	"server/internal/domain"
)

func (a *App) MeshGenerate(w http.ResponseWriter, r *http.Request, p domain.Principal) {
	a.generate(w, r, p, domain.KindMesh)
}

func (a *App) MeshStatus(w http.ResponseWriter, r *http.Request, _ domain.Principal) {
	a.status(w, r, domain.KindMesh)
}
