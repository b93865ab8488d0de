package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/bionicotaku/lingo-utils-portalx"
)

func main() {
	statePath := flag.String("state", "", "session state file (default: user config dir)")
	clear := flag.Bool("clear", false, "log out: clear the persisted session")
	flag.Parse()

	path := *statePath
	if path == "" {
		var err error
		path, err = portalx.DefaultStoragePath()
		if err != nil {
			log.Fatalf("resolve state path: %v", err)
		}
	}

	storage, err := portalx.NewFileStorage(path)
	if err != nil {
		log.Fatalf("open state file: %v", err)
	}
	store := portalx.NewSessionStore(storage)

	if *clear {
		store.Clear()
		fmt.Println("session cleared")
		return
	}

	session := store.Read()
	if session == nil {
		fmt.Println("logged out")
		return
	}

	fmt.Println("== Session ==")
	fmt.Printf("user       : %s\n", session.User.Name)
	fmt.Printf("first name : %s\n", session.User.FirstName())
	fmt.Printf("last name  : %s\n", session.User.LastName())
	fmt.Printf("email      : %s\n", session.User.Email)
	if session.User.AvatarURL != "" {
		fmt.Printf("avatar     : %s\n", session.User.AvatarURL)
	}
	if exp, ok := session.TokenExpiresAt(); ok {
		remaining := time.Until(exp).Round(time.Second)
		fmt.Printf("token exp  : %s (%s)\n", exp.Format(time.RFC3339), remaining)
	} else {
		fmt.Println("token exp  : opaque token, expiry unknown")
	}
}
