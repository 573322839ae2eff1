package main

import (
	"log"
	"net"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	qrcode "github.com/skip2/go-qrcode"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Same-host deployment; the client is served from this process
		return true
	},
}

// extractIP gets the client IP, honoring X-Forwarded-For from a proxy
func extractIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		parts := strings.Split(fwd, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// SetupRoutes wires the HTTP mux: static client, websocket, QR join codes
func SetupRoutes(mux *http.ServeMux, hub *Hub, clientDir string) {
	fileServer := http.FileServer(http.Dir(clientDir))
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
		// Controller join links carry a session UUID path; the SPA routes it
		if strings.Count(r.URL.Path, "-") == 4 && !strings.Contains(r.URL.Path, ".") {
			http.ServeFile(w, r, clientDir+"/index.html")
			return
		}
		fileServer.ServeHTTP(w, r)
	})

	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		serveWs(hub, w, r)
	})

	mux.HandleFunc("/qr", func(w http.ResponseWriter, r *http.Request) {
		serveQR(hub, w, r)
	})
}

// serveWs upgrades the connection and starts the client pumps
func serveWs(hub *Hub, w http.ResponseWriter, r *http.Request) {
	ip := extractIP(r)
	if !hub.CanAccept(ip) {
		http.Error(w, "too many connections", http.StatusTooManyRequests)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade failed: %v", err)
		return
	}
	hub.TrackConnect(ip)

	client := NewClient(hub, conn, ip)
	hub.register <- client

	go client.WritePump()
	go client.ReadPump()
}

// serveQR renders a PNG QR code encoding the phone-controller join link
// for a live session
func serveQR(hub *Hub, w http.ResponseWriter, r *http.Request) {
	sid := r.URL.Query().Get("sid")
	if sid == "" {
		http.Error(w, "missing sid", http.StatusBadRequest)
		return
	}
	if hub.sessions.GetSession(sid) == nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	joinURL := scheme + "://" + r.Host + "/" + sid

	png, err := qrcode.Encode(joinURL, qrcode.Medium, 256)
	if err != nil {
		http.Error(w, "qr generation failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-cache")
	w.Write(png)
}
