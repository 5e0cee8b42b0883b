/*
Package pipeline loads sequence definitions from YAML (or JSON) files and
compiles them into runnable sequences against a step registry.

	name: countdown
	steps:
	  - use: add
	    with: {amount: 1}
	  - loop:
	      cond: {use: repeat, with: {times: 3}}
	      body: {use: sleep, with: {duration: 10ms}}
	  - use: multiply
	    with: {factor: 2}
*/
package pipeline
