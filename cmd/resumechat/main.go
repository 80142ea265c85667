// Command resumechat is a terminal client for the resume chat service.
package main

func main() {
	Execute()
}
