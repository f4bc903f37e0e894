package tui

import (
	"fmt"

	"github.com/muesli/termenv"
)

// PrintBanner outputs the stanza ASCII art banner with the version.
func PrintBanner(version string) {
	p := termenv.ColorProfile()
	// Subtle gradient-like color scheme (Indigo/Violet)
	s1 := termenv.String("      _                        ").Foreground(p.Color("#818cf8"))
	s2 := termenv.String("  ___| |_ __ _ _ __  ______ _  ").Foreground(p.Color("#a78bfa"))
	s3 := termenv.String(" / __| __/ _` | '_ \\|_  / _` | ").Foreground(p.Color("#c084fc"))
	s4 := termenv.String(" \\__ \\ || (_| | | | |/ / (_| | ").Foreground(p.Color("#e879f9"))
	s5 := termenv.String(" |___/\\__\\__,_|_| |_/___\\__,_| ").Foreground(p.Color("#f472b6"))
	s6 := termenv.String("                         "+version).Foreground(p.Color("#fb7185"))

	fmt.Println()
	fmt.Println(s1)
	fmt.Println(s2)
	fmt.Println(s3)
	fmt.Println(s4)
	fmt.Println(s5)
	fmt.Println(s6)
	fmt.Println()
}
