// Command certflow runs the certification lifecycle API and its maintenance
// jobs.
package main

func main() {
	Execute()
}
