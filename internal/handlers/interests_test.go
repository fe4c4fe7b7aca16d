package handlers

import (
	"net/http"
	"testing"

	"github.com/Elizabethomito/nearby/internal/models"
)

func TestCreateInterest_AdminOnly(t *testing.T) {
	env := newTestEnv(t)
	body := models.CreateInterestRequest{Name: "Music"}

	rec, _ := env.call(t, http.MethodPost, "/api/interests", tokenFor(t, "u", models.RoleUser), body)
	expectStatus(t, rec, http.StatusForbidden)

	admin := tokenFor(t, "root", models.RoleAdmin)
	rec, out := env.call(t, http.MethodPost, "/api/interests", admin, body)
	expectStatus(t, rec, http.StatusCreated)
	var in models.Interest
	data(t, out, &in)
	if in.ID == "" || in.Name != "Music" {
		t.Errorf("interest: %+v", in)
	}

	rec, _ = env.call(t, http.MethodPost, "/api/interests", admin, body)
	expectStatus(t, rec, http.StatusBadRequest)

	rec, _ = env.call(t, http.MethodPost, "/api/interests", admin, models.CreateInterestRequest{})
	expectStatus(t, rec, http.StatusBadRequest)
}

func TestListInterests(t *testing.T) {
	env := newTestEnv(t)
	admin := tokenFor(t, "root", models.RoleAdmin)
	for _, name := range []string{"Tech", "Food"} {
		env.call(t, http.MethodPost, "/api/interests", admin, models.CreateInterestRequest{Name: name})
	}

	rec, out := env.call(t, http.MethodGet, "/api/interests", "", nil)
	expectStatus(t, rec, http.StatusOK)
	var list []models.Interest
	data(t, out, &list)
	if len(list) != 2 || list[0].Name != "Food" || list[1].Name != "Tech" {
		t.Errorf("interests: %+v", list)
	}
}
