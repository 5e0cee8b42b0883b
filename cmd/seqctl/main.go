// Command seqctl runs sequence pipelines from the command line or over HTTP.
package main

func main() {
	Execute()
}
