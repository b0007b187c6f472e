// Package variant exposes the montage variant store: save, list, load,
// compare and delete.
package variant

import (
	"encoding/json"
	"fmt"
	"net/http"

	"lbo_analyzer/pkg/core/store"
)

var variants *store.VariantStore

// InitHandler wires the variant store (DB + file fallback).
func InitHandler(vs *store.VariantStore) {
	variants = vs
}

type CompareRequest struct {
	IDA string `json:"id_a"`
	IDB string `json:"id_b"`
}

// HandleSave persists a variant. A missing ID means "create"; an existing
// one is updated in place with its created_at preserved.
func HandleSave(w http.ResponseWriter, r *http.Request) {
	// CORS
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}

	var v store.Variant
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if v.CompanyName == "" {
		http.Error(w, "Le nom de l'entreprise est requis", http.StatusBadRequest)
		return
	}

	if err := variants.Save(r.Context(), &v); err != nil {
		fmt.Printf("[VARIANT] Sauvegarde échouée: %v\n", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	fmt.Printf("[VARIANT] Sauvegardé: %s (%s)\n", v.ID, v.Status)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// HandleList returns the variants matching the company/status/tag query
// parameters, newest first.
func HandleList(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

	filter := store.VariantFilter{
		CompanyName: r.URL.Query().Get("company"),
		Status:      store.VariantStatus(r.URL.Query().Get("status")),
		Tag:         r.URL.Query().Get("tag"),
	}
	list, err := variants.List(r.Context(), filter)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	fmt.Printf("[VARIANT] Liste: %d variante(s)\n", len(list))

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(list)
}

// HandleGet loads one variant by id.
func HandleGet(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

	id := r.URL.Query().Get("id")
	if id == "" {
		http.Error(w, "Paramètre id manquant", http.StatusBadRequest)
		return
	}

	v, err := variants.Load(r.Context(), id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if v == nil {
		http.Error(w, fmt.Sprintf("Variante introuvable: %s", id), http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// HandleCompare returns the metric and structure deltas between two variants.
func HandleCompare(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}

	var req CompareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.IDA == "" || req.IDB == "" {
		http.Error(w, "Deux identifiants de variante sont requis", http.StatusBadRequest)
		return
	}

	cmp, err := variants.Compare(r.Context(), req.IDA, req.IDB)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(cmp)
}

// HandleDelete removes a variant by id.
func HandleDelete(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}

	id := r.URL.Query().Get("id")
	if id == "" {
		http.Error(w, "Paramètre id manquant", http.StatusBadRequest)
		return
	}

	deleted, err := variants.Delete(r.Context(), id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if !deleted {
		http.Error(w, fmt.Sprintf("Variante introuvable: %s", id), http.StatusNotFound)
		return
	}
	fmt.Printf("[VARIANT] Supprimé: %s\n", id)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"deleted": true})
}
